package osc

import (
	"net"
	"sync"
	"testing"
	"time"
)

type dummyConn struct {
	net.PacketConn
	m []byte
}

func (d *dummyConn) ReadFrom(buf []byte) (n int, addr net.Addr, err error) {
	n = copy(buf, d.m)
	return
}

func (d *dummyConn) SetReadDeadline(_ time.Time) (err error) { return }

func listenLoopback(t testing.TB) net.PacketConn {
	t.Helper()
	c, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServerMessageReceiving(t *testing.T) {
	c := listenLoopback(t)
	server := &Server{ReadTimeout: 5 * time.Second}

	client, err := Dial(c.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	msg := NewMessage("/address/test")
	msg.Append(int32(1122))
	msg.Append(int32(3344))
	for i := 0; i < 3; i++ {
		if _, _, err := client.Send(msg); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 3; i++ {
		packet, _, err := server.ReceivePacketFromConn(c)
		if err != nil {
			t.Fatalf("Server error: %v", err)
		}
		if packet == nil {
			t.Fatal("nil packet")
		}

		msg := packet.(*Message)
		if len(msg.Arguments) != 2 {
			t.Errorf("Argument length should be 2 and is: %d\n", len(msg.Arguments))
		}
		if msg.Arguments[0].(int32) != 1122 {
			t.Errorf("Argument should be 1122 and is: %d", msg.Arguments[0].(int32))
		}
		if msg.Arguments[1].(int32) != 3344 {
			t.Errorf("Argument should be 3344 and is: %d", msg.Arguments[1].(int32))
		}
	}
}

func TestReadTimeout(t *testing.T) {
	c := listenLoopback(t)
	server := &Server{ReadTimeout: 100 * time.Millisecond}

	client, err := Dial(c.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, _, err = client.Send(NewMessage("/address/test1")); err != nil {
		t.Fatal(err)
	}

	p, _, err := server.ReceivePacketFromConn(c)
	if err != nil {
		t.Fatalf("server error: %v", err)
	}
	if got, want := p.(*Message).Address, "/address/test1"; got != want {
		t.Errorf("wrong address; got = %s, want = %s", got, want)
	}

	// Second receive should time out, nothing was sent
	if _, _, err = server.ReceivePacketFromConn(c); err == nil {
		t.Fatal("expected error")
	}
	if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
		t.Errorf("expected timeout, got %v", err)
	}

	if _, _, err = client.Send(NewMessage("/address/test2")); err != nil {
		t.Fatal(err)
	}

	// Next receive should get it
	p, _, err = server.ReceivePacketFromConn(c)
	if err != nil {
		t.Fatalf("server error: %v", err)
	}
	if got, want := p.(*Message).Address, "/address/test2"; got != want {
		t.Errorf("wrong address; got = %s, want = %s", got, want)
	}
}

func TestServer_Serve(t *testing.T) {
	c := listenLoopback(t)

	var mu sync.Mutex
	var got []string
	received := make(chan struct{}, 4)
	d := &Dispatcher{}
	d.AddMethodFunc("/a", func(msg *Message) {
		mu.Lock()
		got = append(got, msg.Address)
		mu.Unlock()
		received <- struct{}{}
	})
	server := &Server{Handler: d.Dispatch}

	done := make(chan error, 1)
	go func() { done <- server.Serve(c) }()

	client, err := Dial(c.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	// a malformed datagram must not stop the server
	if _, err = client.Write([]byte("garbage")); err != nil {
		t.Fatal(err)
	}
	if _, _, err = client.Send(NewMessage("/a")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("message not dispatched")
	}

	c.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after close")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "/a" {
		t.Errorf("dispatched = %v, want [/a]", got)
	}
}

func TestServer_ServeWithoutHandler(t *testing.T) {
	if err := (&Server{}).Serve(&dummyConn{}); err == nil {
		t.Error("Serve() without handler should fail")
	}
}

func BenchmarkReceivePacketFromConn(b *testing.B) {
	d := &dummyConn{m: msg}
	s := &Server{}
	var p Packet
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		p, _, _ = s.ReceivePacketFromConn(d)
	}
	result = p
}
