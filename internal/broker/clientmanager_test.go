package broker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func registerFake(t *testing.T, cm *ClientManager) (*Client, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	c, err := cm.Register(context.Background(), conn)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c, conn
}

func TestRegisterSendsHelloAndAssignsIncreasingIDs(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	a, connA := registerFake(t, cm)
	b, _ := registerFake(t, cm)

	if a.ID == b.ID {
		t.Fatalf("expected distinct client ids, both got %d", a.ID)
	}
	waitFor(t, func() bool { return connA.writeCount() == 1 })
}

func TestSubscribeUnsubscribeTracksMembership(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	c, _ := registerFake(t, cm)

	if cm.IsSubscribed(c.ID, "doc") {
		t.Fatalf("should not be subscribed before Subscribe")
	}
	cm.Subscribe(c.ID, "doc")
	if !cm.IsSubscribed(c.ID, "doc") {
		t.Fatalf("expected subscribed after Subscribe")
	}
	if got := cm.Subscribers("doc"); len(got) != 1 || got[0] != c.ID {
		t.Fatalf("Subscribers(doc) = %v, want [%d]", got, c.ID)
	}

	cm.Unsubscribe(c.ID, "doc")
	if cm.IsSubscribed(c.ID, "doc") {
		t.Fatalf("should not be subscribed after Unsubscribe")
	}
	if got := cm.Subscribers("doc"); len(got) != 0 {
		t.Fatalf("Subscribers(doc) = %v, want empty", got)
	}
}

func TestBroadcastExcludesGivenClientAndUnsubscribed(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	a, connA := registerFake(t, cm)
	b, connB := registerFake(t, cm)
	_, connC := registerFake(t, cm) // never subscribes

	cm.Subscribe(a.ID, "doc")
	cm.Subscribe(b.ID, "doc")

	baseA, baseB, baseC := connA.writeCount(), connB.writeCount(), connC.writeCount()

	cm.Broadcast("doc", a.ID, "update", map[string]any{"x": 1.0})

	waitFor(t, func() bool { return connB.writeCount() == baseB+1 })
	if connA.writeCount() != baseA {
		t.Fatalf("excluded client should not have received the broadcast")
	}
	if connC.writeCount() != baseC {
		t.Fatalf("unsubscribed client should not have received the broadcast")
	}
}

func TestCleanUpClientRemovesSubscriptionsAndServices(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	c, _ := registerFake(t, cm)
	cm.Subscribe(c.ID, "doc")
	cm.RegisterService(c.ID, "translate")

	c.Disconnect()
	waitFor(t, func() bool { return !cm.IsSubscribed(c.ID, "doc") })

	if _, ok := cm.ServiceProvider("translate"); ok {
		t.Fatalf("service should be deregistered once its provider disconnects")
	}
	if _, ok := cm.Get(c.ID); ok {
		t.Fatalf("client should be removed from the registry")
	}
}

func TestUnregisterServiceRejectsWrongProvider(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	a, _ := registerFake(t, cm)
	b, _ := registerFake(t, cm)

	cm.RegisterService(a.ID, "svc")
	if err := cm.UnregisterService(b.ID, "svc"); err == nil {
		t.Fatalf("expected an error unregistering a service owned by a different client")
	}
	if err := cm.UnregisterService(a.ID, "svc"); err != nil {
		t.Fatalf("UnregisterService by the actual provider: %v", err)
	}
}

func TestRegisterServiceLastRegistrantWins(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	a, _ := registerFake(t, cm)
	b, _ := registerFake(t, cm)

	cm.RegisterService(a.ID, "svc")
	cm.RegisterService(b.ID, "svc")

	provider, ok := cm.ServiceProvider("svc")
	if !ok || provider != b.ID {
		t.Fatalf("ServiceProvider(svc) = (%d, %v), want (%d, true)", provider, ok, b.ID)
	}
}

func TestSendToUnknownClientIsANoop(t *testing.T) {
	cm := NewClientManager(zerolog.Nop())
	cm.SendTo(999, "update", map[string]any{})
}
