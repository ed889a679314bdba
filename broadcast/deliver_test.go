package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWSDelivererRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	delivered := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		d := NewWSDeliverer(conn)
		delivered <- d.Deliver(Payload{
			OriginalText:   "hello",
			TranslatedText: "hola",
			SequenceID:     7,
			Timestamp:      time.Now(),
		})
		d.Close()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var p Payload
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if p.TranslatedText != "hola" || p.SequenceID != 7 || p.IsPartial {
		t.Errorf("payload = %+v, want final seq 7 hola", p)
	}
	if err := <-delivered; err != nil {
		t.Errorf("Deliver: %v", err)
	}
}
