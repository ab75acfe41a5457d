package connection

import (
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateDisconnected, StateWaitingQR, true},
		{StateDisconnected, StateConnected, true},
		{StateWaitingQR, StateConnected, true},
		{StateWaitingQR, StateDisconnected, true},
		{StateConnected, StateDisconnected, true},
		{StateConnected, StateWaitingQR, false},
		{StateConnected, StateConnected, true},
		{StateDisconnected, StateDisconnected, true},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSessionName(t *testing.T) {
	name, err := SessionName("a1b2c3d4-e5f6-7890-abcd-ef0123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "tenant_a1b2c3d4" {
		t.Errorf("expected tenant_a1b2c3d4, got %s", name)
	}
}

func TestSessionNameRejectsBadID(t *testing.T) {
	if _, err := SessionName("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed tenant id")
	}
}

func TestResolveQRRawPayload(t *testing.T) {
	img := ResolveQR("raw:2@abc def/ghi==")
	s := string(img)

	if !strings.HasPrefix(s, QRRenderEndpoint) {
		t.Fatalf("expected render endpoint prefix, got %s", s)
	}
	if strings.Contains(s, " ") {
		t.Error("raw payload must be URL-encoded")
	}
	if !strings.Contains(s, "2%40abc+def%2Fghi%3D%3D") {
		t.Errorf("payload not encoded as expected: %s", s)
	}
}

func TestResolveQRPassthrough(t *testing.T) {
	img := ResolveQR("data:image/png;base64,AAAA")
	if string(img) != "data:image/png;base64,AAAA" {
		t.Errorf("data URI must pass through untouched, got %s", img)
	}
}

func TestQRFromBase64(t *testing.T) {
	if got := QRFromBase64("AAAA"); got != "data:image/png;base64,AAAA" {
		t.Errorf("unexpected data URI: %s", got)
	}
	full := "data:image/png;base64,BBBB"
	if got := QRFromBase64(full); string(got) != full {
		t.Errorf("full data URI must not be double-wrapped: %s", got)
	}
}
