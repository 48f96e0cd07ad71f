package core

import (
	"strconv"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	reg := NewRegistry(1024, nil)
	hub := NewHub(nil)

	conns := make([]*Connection, 0, recipients)
	for i := range recipients {
		c := reg.Register("c"+strconv.Itoa(i), "2001:db8::"+strconv.Itoa(i))
		if _, err := hub.Subscribe(c, "bench"); err != nil {
			b.Fatalf("subscribe: %v", err)
		}
		conns = append(conns, c)
	}

	// Drain events for all but the first recipient to avoid buffer drops.
	target := conns[0]
	for _, c := range conns[1:] {
		go func(conn *Connection) {
			for {
				select {
				case <-conn.Events():
				case <-conn.Done():
					return
				}
			}
		}(c)
	}
	b.Cleanup(func() {
		for _, c := range conns {
			reg.Unregister(c.ID)
		}
	})

	ev := NewMessageEvent(&Message{ID: 1, Content: "payload", Room: "bench"})

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := hub.Publish("bench", ev); err != nil {
			b.Fatalf("publish: %v", err)
		}
		<-target.Events()
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }

func BenchmarkNormalizeAndRegister(b *testing.B) {
	reg := NewRegistry(1, nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := reg.Register("", "2601:19b:1082:76b0:1bf0:57bd:2cdf:5156")
		reg.Unregister(c.ID)
	}
}
