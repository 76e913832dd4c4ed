package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/middleware"
)

// handleListUsers はすべてのユーザーの一覧を返すハンドラを返す。管理者のみ。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.queries.ListUsers(c.Request.Context())
		if err != nil {
			internalError(c, "ユーザー一覧の取得に失敗しました", err)
			return
		}

		responses := make([]userResponse, 0, len(users))
		for _, u := range users {
			responses = append(responses, toUserResponse(u))
		}

		c.JSON(http.StatusOK, gin.H{
			"users":      responses,
			"totalUsers": len(responses),
		})
	}
}

// handleDeleteUser はユーザーとその目標をまとめて削除するハンドラを返す。管理者のみ。
// 目標の削除とユーザーの削除は1つのトランザクションで行う。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID := c.Param("id")

		removed, err := store.DeleteUserCascade(c.Request.Context(), s.db, targetID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			internalError(c, "ユーザーの削除に失敗しました", err)
			return
		}

		log.Printf("[Server] %s %s がユーザー %s を削除しました（目標 %d 件）",
			middleware.GetRole(c), middleware.GetUserID(c), targetID, removed)
		c.JSON(http.StatusOK, gin.H{
			"message":      "ユーザーを削除しました",
			"deletedGoals": removed,
		})
	}
}
