package shopee

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignDeterministic(t *testing.T) {
	c := NewClient(2007117, "shpk-secret", "https://partner.shopeemobile.com")

	a := c.sign(pathOrderList, 1700000000, "token-abc", 123456)
	b := c.sign(pathOrderList, 1700000000, "token-abc", 123456)
	if a != b {
		t.Fatalf("same inputs produced different signatures: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("signature is not valid hex: %v", err)
	}
}

func TestSignIncludesShopCredentials(t *testing.T) {
	c := NewClient(2007117, "shpk-secret", "https://partner.shopeemobile.com")

	public := c.sign(pathTokenGet, 1700000000, "", 0)
	shop := c.sign(pathTokenGet, 1700000000, "token-abc", 123456)
	if public == shop {
		t.Error("shop-level signature should differ from public signature")
	}

	otherShop := c.sign(pathTokenGet, 1700000000, "token-abc", 654321)
	if shop == otherShop {
		t.Error("signature should change with shop id")
	}

	otherTime := c.sign(pathTokenGet, 1700000001, "token-abc", 123456)
	if shop == otherTime {
		t.Error("signature should change with timestamp")
	}
}

func TestSignMatchesKnownBase(t *testing.T) {
	c := NewClient(42, "key", "https://partner.shopeemobile.com")

	mac := hmac.New(sha256.New, []byte("key"))
	mac.Write([]byte("42" + pathOrderList + "1700000000" + "tok" + "99"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := c.sign(pathOrderList, 1700000000, "tok", 99); got != want {
		t.Errorf("sign() = %s, want %s", got, want)
	}
}

func TestVerifyPushSignature(t *testing.T) {
	key := "shpk-push-key"
	url := "https://api.sellerdesk.io/api/v1/webhooks/shopee"
	body := []byte(`{"shop_id":123456,"code":3,"data":{"ordersn":"220101ABC"}}`)

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(url))
	mac.Write([]byte("|"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyPushSignature(key, url, body, sig) {
		t.Error("valid signature rejected")
	}
	if VerifyPushSignature(key, url, []byte(`{"tampered":true}`), sig) {
		t.Error("tampered body accepted")
	}
	if VerifyPushSignature("wrong-key", url, body, sig) {
		t.Error("signature from wrong key accepted")
	}
	if VerifyPushSignature(key, url, body, "") {
		t.Error("empty signature accepted")
	}
}

func TestAPIErrorAuthInvalid(t *testing.T) {
	cases := []struct {
		err  APIError
		want bool
	}{
		{APIError{Code: "error_auth", Status: 200}, true},
		{APIError{Code: "invalid_access_token", Status: 200}, true},
		{APIError{Code: "invalid_grant", Status: 400}, true},
		{APIError{Code: "", Status: 401}, true},
		{APIError{Code: "error_param", Status: 400}, false},
		{APIError{Code: "error_server", Status: 500}, false},
	}
	for _, tc := range cases {
		if got := tc.err.AuthInvalid(); got != tc.want {
			t.Errorf("AuthInvalid() for code=%q status=%d = %v, want %v", tc.err.Code, tc.err.Status, got, tc.want)
		}
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{RequestID: "req-1", Code: "error_param", Message: "bad window", Status: 400}
	msg := err.Error()
	for _, part := range []string{"error_param", "bad window", "req-1"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message %q missing %q", msg, part)
		}
	}
}
