// Package initdata validates and parses Telegram Mini App init data, the
// signed query string the storefront sends to prove which Telegram user is
// behind a request.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHash = errors.New("initdata: missing hash parameter")
	ErrBadHash     = errors.New("initdata: hash mismatch")
	ErrExpired     = errors.New("initdata: auth_date outside allowed window")
)

// User is the Telegram user embedded in init data.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// InitData is the parsed, validated payload.
type InitData struct {
	User       *User
	AuthDate   time.Time
	StartParam string
	QueryID    string
}

// Validate checks the HMAC signature of raw against botToken. When expiry
// is positive, init data older than that is rejected.
func Validate(raw, botToken string, expiry time.Duration) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("initdata: parse query: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return ErrMissingHash
	}

	// Data-check-string: all pairs except hash, sorted, joined by newlines.
	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	// The signing key is HMAC of the bot token keyed by "WebAppData".
	keyMAC := hmac.New(sha256.New, []byte("WebAppData"))
	keyMAC.Write([]byte(botToken))
	secret := keyMAC.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return ErrBadHash
	}

	if expiry > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return fmt.Errorf("initdata: parse auth_date: %w", err)
		}
		if time.Since(time.Unix(authDate, 0)) > expiry {
			return ErrExpired
		}
	}
	return nil
}

// Parse decodes raw without validating it. Call Validate first.
func Parse(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("initdata: parse query: %w", err)
	}

	data := &InitData{
		StartParam: values.Get("start_param"),
		QueryID:    values.Get("query_id"),
	}
	if v := values.Get("auth_date"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("initdata: parse auth_date: %w", err)
		}
		data.AuthDate = time.Unix(ts, 0)
	}
	if v := values.Get("user"); v != "" {
		var user User
		if err := json.Unmarshal([]byte(v), &user); err != nil {
			return nil, fmt.Errorf("initdata: parse user: %w", err)
		}
		data.User = &user
	}
	return data, nil
}
