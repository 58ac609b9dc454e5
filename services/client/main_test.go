package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/moses-Dera/TaskFlow-sub000/internal/config"
	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/reconcile"
)

func TestTransport(t *testing.T) {
	gw := gateway.New(gateway.Options{BaseURL: "http://localhost:5000"})
	tests := []struct {
		name string
		want string
	}{
		{config.TransportWebSocket, "websocket"},
		{config.TransportPolling, "polling"},
		{config.TransportAuto, "websocket+polling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Transport: tt.name, EventsURL: "ws://localhost:5000/ws"}
			var tr live.Transport = transport(cfg, gw)
			if got := tr.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatUnread(t *testing.T) {
	got := formatUnread(map[string]int{"zoe": 2, model.GroupKey: 1, "adam": 0})
	if diff := cmp.Diff("group 1, zoe 2", got); diff != "" {
		t.Errorf("formatUnread mismatch (-want +got):\n%s", diff)
	}
}

func TestSignature(t *testing.T) {
	a := reconcile.Entry{Message: model.Message{ID: "m1", Content: "hi", Reactions: []model.Reaction{{Emoji: "👍", Users: []string{"b", "a"}}}}}
	b := a
	b.Message.Reactions = []model.Reaction{{Emoji: "👍", Users: []string{"a", "b"}}}
	if signature(&a) != signature(&b) {
		t.Error("reaction user order changed the signature")
	}
	b.Message.Pinned = true
	if signature(&a) == signature(&b) {
		t.Error("pin did not change the signature")
	}
}
