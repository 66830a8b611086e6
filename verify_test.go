package soupnight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowAllAlwaysPasses(t *testing.T) {
	ok, err := AllowAll{}.Verify(context.Background(), "", "203.0.113.1")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Error("AllowAll should pass every submission")
	}
}

func siteverifyServer(t *testing.T, success bool, gotForm *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse siteverify form: %v", err)
		}
		if gotForm != nil {
			*gotForm = map[string]string{
				"secret":   r.PostFormValue("secret"),
				"response": r.PostFormValue("response"),
				"remoteip": r.PostFormValue("remoteip"),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": success})
	}))
}

func TestRecaptchaEmptyTokenFailsWithoutCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("siteverify should not be called for an empty token")
	}))
	defer srv.Close()

	v := &RecaptchaVerifier{secret: "s3cret", endpoint: srv.URL, client: srv.Client()}
	ok, err := v.Verify(context.Background(), "", "203.0.113.1")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Error("empty token should fail verification")
	}
}

func TestRecaptchaSuccess(t *testing.T) {
	var form map[string]string
	srv := siteverifyServer(t, true, &form)
	defer srv.Close()

	v := &RecaptchaVerifier{secret: "s3cret", endpoint: srv.URL, client: srv.Client()}
	ok, err := v.Verify(context.Background(), "tok-123", "203.0.113.1")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Error("expected a successful verification")
	}
	if form["secret"] != "s3cret" || form["response"] != "tok-123" || form["remoteip"] != "203.0.113.1" {
		t.Errorf("siteverify form = %v", form)
	}
}

func TestRecaptchaDenied(t *testing.T) {
	srv := siteverifyServer(t, false, nil)
	defer srv.Close()

	v := &RecaptchaVerifier{secret: "s3cret", endpoint: srv.URL, client: srv.Client()}
	ok, err := v.Verify(context.Background(), "tok-123", "")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Error("a failed siteverify answer must not pass")
	}
}

func TestRecaptchaTransportError(t *testing.T) {
	srv := siteverifyServer(t, true, nil)
	srv.Close() // nothing listening anymore

	v := &RecaptchaVerifier{secret: "s3cret", endpoint: srv.URL, client: &http.Client{}}
	if _, err := v.Verify(context.Background(), "tok-123", ""); err == nil {
		t.Error("expected a transport error")
	}
}

func TestRecaptchaMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	v := &RecaptchaVerifier{secret: "s3cret", endpoint: srv.URL, client: srv.Client()}
	if _, err := v.Verify(context.Background(), "tok-123", ""); err == nil {
		t.Error("expected a decode error")
	}
}
