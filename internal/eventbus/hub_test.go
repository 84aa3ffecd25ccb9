package eventbus

import (
	"context"
	"testing"

	"github.com/wmgateway/gateway/domain"
)

func TestHub_EmitDoesNotBlockWithoutSubscribers(t *testing.T) {
	h := NewHub(nil)
	err := h.Emit(context.Background(), domain.Event{
		Kind:    domain.EventExecuted,
		Payload: domain.ExecutedEvent{CommandID: domain.CommandID{0x01}},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
}

func TestHub_RunStopsOnContextCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()
	<-done
}
