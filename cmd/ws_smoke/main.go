// Command ws_smoke logs a throwaway wallet into a running server, opens its
// points feed and checks in, expecting the credit to arrive on the socket.
package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"noizlabs/internal/logger"
	"noizlabs/internal/wallet"
	"noizlabs/internal/ws"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.Fatal("generate key", "error", err)
	}
	address := wallet.Address(priv.Public().(ed25519.PublicKey))
	msg := wallet.BuildChallenge(address, time.Now())

	var link struct {
		Properties struct {
			Token string `json:"token"`
		} `json:"properties"`
	}
	post(base, "/api/v1/auth/wallet", "", map[string]string{
		"walletAddress": address,
		"signature":     wallet.Sign(priv, msg),
		"message":       msg,
	}, &link)

	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	post(base, "/api/v1/auth/session", "", map[string]string{"token": link.Properties.Token}, &sess)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", base, sess.AccessToken), nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	expect(conn, ws.MsgReady)
	post(base, "/api/v1/daily-checkin", sess.AccessToken, nil, nil)
	ev := expect(conn, ws.MsgPointsAwarded)

	logger.Info("smoke ok", "wallet", address, "event", ev.Payload)
}

func post(base, path, token string, body, out any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(http.MethodPost, "http://"+base+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("request failed", "path", path, "error", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		logger.Fatal("unexpected status", "path", path, "status", res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			logger.Fatal("decode", "path", path, "error", err)
		}
	}
}

func expect(conn *websocket.Conn, typ string) ws.Message {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m ws.Message
	if err := conn.ReadJSON(&m); err != nil {
		logger.Fatal("read", "want", typ, "error", err)
	}
	if m.Type != typ {
		logger.Fatal("unexpected message", "want", typ, "got", m.Type)
	}
	return m
}
