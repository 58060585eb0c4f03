package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReply(t *testing.T) {
	var gotAuth string
	var gotReq ReplyRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bot/message/reply" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient("test_token")
	c.SetAPIBase(server.URL)

	msgs := []Message{{Type: "text", Text: "hello"}}
	if err := c.Reply(context.Background(), "rt_1", msgs); err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}

	if gotAuth != "Bearer test_token" {
		t.Errorf("authorization = %s", gotAuth)
	}
	if gotReq.ReplyToken != "rt_1" {
		t.Errorf("reply token = %s", gotReq.ReplyToken)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Text != "hello" {
		t.Errorf("messages = %#v", gotReq.Messages)
	}
}

func TestReplyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer server.Close()

	c := NewClient("test_token")
	c.SetAPIBase(server.URL)

	err := c.Reply(context.Background(), "expired", []Message{{Type: "text", Text: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid reply token") {
		t.Errorf("error = %v, want API message included", err)
	}
}

func TestReplyValidation(t *testing.T) {
	c := NewClient("test_token")

	if err := c.Reply(context.Background(), "", []Message{{Type: "text", Text: "x"}}); err == nil {
		t.Error("expected error for empty reply token")
	}
	if err := c.Reply(context.Background(), "rt", nil); err == nil {
		t.Error("expected error for empty message list")
	}

	six := make([]Message, 6)
	for i := range six {
		six[i] = Message{Type: "text", Text: "x"}
	}
	if err := c.Reply(context.Background(), "rt", six); err == nil {
		t.Error("expected error for more than five messages")
	}
}
