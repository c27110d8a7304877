package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHub_PublishReachesSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := websocket.Upgrader{}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listener not permitted in this environment: %v", err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register <- conn
	}))
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	// Wait for the registration to land before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(UpdateDriverLocation, map[string]interface{}{
		"driver_id": "driver-1",
		"lat":       40.44,
		"lng":       -79.99,
	})

	readCh := make(chan []byte, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read message: %v", err)
			return
		}
		readCh <- data
	}()

	select {
	case got := <-readCh:
		var update Update
		if err := json.Unmarshal(got, &update); err != nil {
			t.Fatalf("unmarshal update: %v", err)
		}
		if update.Kind != UpdateDriverLocation {
			t.Errorf("expected kind %q, got %q", UpdateDriverLocation, update.Kind)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(update.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["driver_id"] != "driver-1" {
			t.Errorf("expected driver-1, got %v", payload["driver_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHub_UnregisterRemovesSubscriberCount(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}
