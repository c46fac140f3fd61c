package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errKeysUnavailable = errors.New("auth: signing keys unavailable")

const defaultKeyTTL = time.Hour

// keySet caches Google's token-signing certificates, keyed by kid.
//
// The endpoint returns {"<kid>": "-----BEGIN CERTIFICATE-----..."} and a
// Cache-Control max-age telling us when the set rotates. An unknown kid
// forces one refresh before the token is rejected.
type keySet struct {
	url    string
	client *http.Client

	mu     sync.RWMutex
	keys   map[string]*rsa.PublicKey
	expiry time.Time
}

func newKeySet(url string, client *http.Client) *keySet {
	return &keySet{url: url, client: client}
}

func (k *keySet) get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	key, ok := k.keys[kid]
	fresh := time.Now().Before(k.expiry)
	k.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := k.refresh(ctx); err != nil {
		return nil, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: unknown key id %q", ErrTokenInvalid, kid)
}

func (k *keySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", errKeysUnavailable, err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errKeysUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errKeysUnavailable, resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("%w: decoding: %v", errKeysUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemData := range certs {
		// Accepts both certificates and bare public keys.
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
		if err != nil {
			return fmt.Errorf("%w: parsing key %q: %v", errKeysUnavailable, kid, err)
		}
		keys[kid] = key
	}

	k.mu.Lock()
	k.keys = keys
	k.expiry = time.Now().Add(maxAge(resp.Header.Get("Cache-Control")))
	k.mu.Unlock()
	return nil
}

// maxAge extracts max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultKeyTTL
}
