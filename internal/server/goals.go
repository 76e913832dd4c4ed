package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/savings/internal/store"
)

// goalRequest は目標の作成と置き換え更新のリクエストJSON構造。
type goalRequest struct {
	// Name は目標名。
	Name string `json:"name" binding:"required,max=100"`
	// TargetAmount は目標金額。0より大きい値。
	TargetAmount *float64 `json:"targetAmount" binding:"required,gt=0"`
	// SavedAmount は貯蓄済みの金額。省略時は作成なら0、更新なら現在値のまま。
	SavedAmount *float64 `json:"savedAmount" binding:"omitempty,gte=0"`
	// Category はカテゴリ。
	Category string `json:"category" binding:"required,max=50"`
	// TargetDate は達成予定日（YYYY-MM-DD）。
	TargetDate *string `json:"targetDate"`
}

// patchGoalRequest は目標の部分更新リクエストJSON構造。
// 指定されたフィールドだけを更新する。
type patchGoalRequest struct {
	Name         *string  `json:"name" binding:"omitempty,max=100"`
	TargetAmount *float64 `json:"targetAmount" binding:"omitempty,gt=0"`
	SavedAmount  *float64 `json:"savedAmount" binding:"omitempty,gte=0"`
	Category     *string  `json:"category" binding:"omitempty,max=50"`
	// TargetDate は省略で現在値のまま、nullで未設定に戻す。
	TargetDate json.RawMessage `json:"targetDate"`
}

// empty は更新対象のフィールドが1つも指定されていないかを返す。
func (r patchGoalRequest) empty() bool {
	return r.Name == nil && r.TargetAmount == nil && r.SavedAmount == nil &&
		r.Category == nil && r.TargetDate == nil
}

// errEmptyName は目標名が空白だけの場合のエラー。
var errEmptyName = errors.New("目標名を入力してください")

// parseTargetDate は達成予定日の文字列を日付に変換する。
// nilまたは空文字の場合は未設定としてnilを返す。
func parseTargetDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if d, err := time.Parse(time.DateOnly, v); err == nil {
		return &d, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("targetDateはYYYY-MM-DD形式で指定してください: %q", v)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

// normalizeName は目標名の前後の空白を取り除き、空の場合はエラーを返す。
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errEmptyName
	}
	return name, nil
}

// handleListGoals は呼び出し元の目標一覧を新しい順に返すハンドラを返す。
func (s *Server) handleListGoals() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		goals, err := s.queries.ListGoalsByUserID(c.Request.Context(), userID)
		if err != nil {
			internalError(c, "目標一覧の取得に失敗しました", err)
			return
		}

		responses := make([]goalResponse, 0, len(goals))
		for _, g := range goals {
			responses = append(responses, toGoalResponse(g))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleCreateGoal は目標の作成を処理するハンドラを返す。
// IDと作成日時はサーバー側で割り当てる。
func (s *Server) handleCreateGoal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req goalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		params, err := req.toCreateParams(userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.queries.CreateGoal(c.Request.Context(), params); err != nil {
			internalError(c, "目標の作成に失敗しました", err)
			return
		}

		created, err := s.queries.GetGoalForUser(c.Request.Context(), params.ID, userID)
		if err != nil {
			internalError(c, "作成した目標の取得に失敗しました", err)
			return
		}

		c.JSON(http.StatusCreated, toGoalResponse(created))
	}
}

// toCreateParams はリクエストを目標作成パラメータに変換する。
func (r goalRequest) toCreateParams(userID string) (store.CreateGoalParams, error) {
	name, err := normalizeName(r.Name)
	if err != nil {
		return store.CreateGoalParams{}, err
	}
	targetDate, err := parseTargetDate(r.TargetDate)
	if err != nil {
		return store.CreateGoalParams{}, err
	}
	var saved float64
	if r.SavedAmount != nil {
		saved = *r.SavedAmount
	}
	return store.CreateGoalParams{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         name,
		TargetAmount: *r.TargetAmount,
		SavedAmount:  saved,
		Category:     strings.TrimSpace(r.Category),
		TargetDate:   targetDate,
		CreatedAt:    time.Now(),
	}, nil
}

// handleGetGoal は目標の詳細を返すハンドラを返す。
// 他のユーザーの目標は存在しないものとして扱う。
func (s *Server) handleGetGoal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		g, err := s.queries.GetGoalForUser(c.Request.Context(), c.Param("id"), userID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "目標が見つかりません"})
			return
		}
		if err != nil {
			internalError(c, "目標の取得に失敗しました", err)
			return
		}

		c.JSON(http.StatusOK, toGoalResponse(g))
	}
}

// handleUpdateGoal は目標の置き換え更新を処理するハンドラを返す。
// 存在しない場合は404、他のユーザーの目標の場合は403を返す。
func (s *Server) handleUpdateGoal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		goalID := c.Param("id")
		current, ok := s.ownedGoal(c, goalID, userID)
		if !ok {
			return
		}

		var req goalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		name, err := normalizeName(req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		targetDate, err := parseTargetDate(req.TargetDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved := current.SavedAmount
		if req.SavedAmount != nil {
			saved = *req.SavedAmount
		}

		s.saveGoal(c, store.UpdateGoalParams{
			ID:           goalID,
			UserID:       userID,
			Name:         name,
			TargetAmount: *req.TargetAmount,
			SavedAmount:  saved,
			Category:     strings.TrimSpace(req.Category),
			TargetDate:   targetDate,
			UpdatedAt:    time.Now(),
		})
	}
}

// handlePatchGoal は目標の部分更新を処理するハンドラを返す。
// 存在しない目標と他のユーザーの目標はどちらも404を返す。
func (s *Server) handlePatchGoal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req patchGoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if req.empty() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "更新する項目がありません"})
			return
		}

		goalID := c.Param("id")
		current, err := s.queries.GetGoalForUser(c.Request.Context(), goalID, userID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "目標が見つかりません"})
			return
		}
		if err != nil {
			internalError(c, "目標の取得に失敗しました", err)
			return
		}

		params, err := req.apply(current)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.saveGoal(c, params)
	}
}

// apply は現在の目標に部分更新を適用した更新パラメータを返す。
func (r patchGoalRequest) apply(g store.Goal) (store.UpdateGoalParams, error) {
	params := store.UpdateGoalParams{
		ID:           g.ID,
		UserID:       g.UserID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount,
		SavedAmount:  g.SavedAmount,
		Category:     g.Category,
		TargetDate:   g.TargetDate,
		UpdatedAt:    time.Now(),
	}
	if r.Name != nil {
		name, err := normalizeName(*r.Name)
		if err != nil {
			return store.UpdateGoalParams{}, err
		}
		params.Name = name
	}
	if r.TargetAmount != nil {
		params.TargetAmount = *r.TargetAmount
	}
	if r.SavedAmount != nil {
		params.SavedAmount = *r.SavedAmount
	}
	if r.Category != nil {
		category := strings.TrimSpace(*r.Category)
		if category == "" {
			return store.UpdateGoalParams{}, errors.New("カテゴリを入力してください")
		}
		params.Category = category
	}
	if r.TargetDate != nil {
		var raw *string
		if err := json.Unmarshal(r.TargetDate, &raw); err != nil {
			return store.UpdateGoalParams{}, fmt.Errorf("targetDateは文字列またはnullで指定してください: %w", err)
		}
		d, err := parseTargetDate(raw)
		if err != nil {
			return store.UpdateGoalParams{}, err
		}
		params.TargetDate = d
	}
	return params, nil
}

// handleDeleteGoal は目標の削除を処理するハンドラを返す。
// 存在しない場合は404、他のユーザーの目標の場合は403を返す。
func (s *Server) handleDeleteGoal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		goalID := c.Param("id")
		if _, ok := s.ownedGoal(c, goalID, userID); !ok {
			return
		}

		err := s.queries.DeleteGoal(c.Request.Context(), goalID, userID)
		if errors.Is(err, store.ErrNotFound) {
			// 所有者チェックの後に別のリクエストで削除された
			c.JSON(http.StatusNotFound, gin.H{"error": "目標が見つかりません"})
			return
		}
		if err != nil {
			internalError(c, "目標の削除に失敗しました", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "目標を削除しました"})
	}
}

// ownedGoal は目標の存在確認と所有者チェックを行う。
// 失敗した場合はレスポンスを書き込んでfalseを返す。
func (s *Server) ownedGoal(c *gin.Context, goalID, userID string) (store.Goal, bool) {
	g, err := s.queries.GetGoalByID(c.Request.Context(), goalID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "目標が見つかりません"})
		return store.Goal{}, false
	}
	if err != nil {
		internalError(c, "目標の取得に失敗しました", err)
		return store.Goal{}, false
	}
	if g.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "この目標へのアクセス権がありません"})
		return store.Goal{}, false
	}
	return g, true
}

// saveGoal は所有者で絞り込んだ更新を実行し、更新後の目標を返す。
func (s *Server) saveGoal(c *gin.Context, params store.UpdateGoalParams) {
	err := s.queries.UpdateGoal(c.Request.Context(), params)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "目標が見つかりません"})
		return
	}
	if err != nil {
		internalError(c, "目標の更新に失敗しました", err)
		return
	}

	updated, err := s.queries.GetGoalForUser(c.Request.Context(), params.ID, params.UserID)
	if err != nil {
		internalError(c, "更新後の目標の取得に失敗しました", err)
		return
	}

	c.JSON(http.StatusOK, toGoalResponse(updated))
}
