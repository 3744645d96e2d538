package tickets

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/models"
)

type fakeCaller struct {
	url     string
	headers map[string]string
	body    []byte
	status  int
}

func (f *fakeCaller) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (httpx.Result, error) {
	f.url = url
	f.headers = headers
	f.body = body
	return httpx.Result{Status: f.status, ParseOK: true, Body: json.RawMessage(`{}`)}, nil
}

func TestCreateSubmitsTicket(t *testing.T) {
	caller := &fakeCaller{status: 201}
	c := NewClient("https://desk.test/tickets", "key-1", caller)

	err := c.Create(context.Background(), models.Ticket{
		Name: "Ada Lovelace", Email: "ada@example.com", Phone: "5550001111",
		Description: "Link broken",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.url != "https://desk.test/tickets" {
		t.Errorf("unexpected url: %s", caller.url)
	}
	if caller.headers["Authorization"] != "Bearer key-1" {
		t.Errorf("api key not carried: %v", caller.headers)
	}
	var tk models.Ticket
	if err := json.Unmarshal(caller.body, &tk); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if tk.Email != "ada@example.com" || tk.Description != "Link broken" {
		t.Errorf("unexpected payload: %+v", tk)
	}
}

func TestCreateRejectedBySink(t *testing.T) {
	c := NewClient("https://desk.test/tickets", "", &fakeCaller{status: 422})
	if err := c.Create(context.Background(), models.Ticket{}); err == nil {
		t.Fatal("sink rejection must surface as an error")
	}
}
