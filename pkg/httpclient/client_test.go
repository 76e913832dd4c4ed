package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// recordingServer は受け取ったリクエストを記録し、固定のJSONを返すテストサーバーを生成する。
func recordingServer(t *testing.T, status int, response string, received *testRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if received != nil {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("デフォルト設定で生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("https://idp.example.com/")
		if client.baseURL != "https://idp.example.com" {
			t.Errorf("baseURL = %q, want 末尾スラッシュなし", client.baseURL)
		}
		if client.httpClient.Timeout != defaultTimeout {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, defaultTimeout)
		}
	})

	t.Run("オプションが適用されること", func(t *testing.T) {
		t.Parallel()

		client := New("https://idp.example.com",
			WithTimeout(3*time.Second),
			WithHeader("X-API-Key", "secret"),
			WithHeader("X-Empty", ""),
		)
		if client.httpClient.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want 3s", client.httpClient.Timeout)
		}
		if got := client.headers.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		if _, ok := client.headers["X-Empty"]; ok {
			t.Error("空の値のヘッダーは設定されるべきではない")
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("JSONボディと共通ヘッダーが送信されレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := recordingServer(t, http.StatusOK, `{"name":"response","value":200}`, &received)
		client := New(ts.URL, WithHeader("X-API-Key", "secret"))

		var result testPayload
		err := client.PostJSON(t.Context(), "/v1/users", testPayload{Name: "request", Value: 1}, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodPost || received.Path != "/v1/users" {
			t.Errorf("リクエスト = %s %s", received.Method, received.Path)
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := received.Headers.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		var sent testPayload
		if err := json.Unmarshal(received.Body, &sent); err != nil {
			t.Fatalf("送信ボディのパースに失敗: %v", err)
		}
		if sent.Name != "request" || sent.Value != 1 {
			t.Errorf("送信ボディ = %+v", sent)
		}
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("レスポンス = %+v", result)
		}
	})

	t.Run("2xx以外はStatusErrorとしてステータスを取り出せること", func(t *testing.T) {
		t.Parallel()

		ts := recordingServer(t, http.StatusConflict, `{"error":"exists"}`, nil)
		err := New(ts.URL).PostJSON(t.Context(), "/v1/users", testPayload{}, nil)

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("err = %v, want *StatusError", err)
		}
		if statusErr.StatusCode != http.StatusConflict {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusConflict)
		}
		if statusErr.Body != `{"error":"exists"}` {
			t.Errorf("Body = %q", statusErr.Body)
		}
	})

	t.Run("resultがnilの場合でもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		ts := recordingServer(t, http.StatusCreated, `{"id":"x"}`, nil)
		if err := New(ts.URL).PostJSON(t.Context(), "/v1/users", testPayload{}, nil); err != nil {
			t.Errorf("PostJSON()でエラーが発生: %v", err)
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := recordingServer(t, http.StatusOK, `{}`, nil)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		if err := New(ts.URL).PostJSON(ctx, "/v1/users", testPayload{}, nil); err == nil {
			t.Error("キャンセル済みコンテキストでエラーが返るべき")
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := recordingServer(t, http.StatusOK, `{not json`, nil)
		var result testPayload
		if err := New(ts.URL).PostJSON(t.Context(), "/v1/users", testPayload{}, &result); err == nil {
			t.Error("不正なJSONでエラーが返るべき")
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:1", WithTimeout(time.Second))
		err := client.PostJSON(t.Context(), "/v1/users", testPayload{}, nil)
		if err == nil {
			t.Fatal("接続エラーが返るべき")
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			t.Error("接続エラーはStatusErrorであるべきではない")
		}
	})
}
