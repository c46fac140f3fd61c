package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const accountsLookupURL = "https://identitytoolkit.googleapis.com/v1/projects/%s/accounts:lookup"

// accountLookup reads account state from the Identity Toolkit API.
//
// The *http.Client comes from oauth2.NewClient, so every request carries a
// service-account access token that is refreshed automatically.
type accountLookup struct {
	client   *http.Client
	endpoint string
}

func newAccountLookup(client *http.Client, projectID string) *accountLookup {
	return &accountLookup{
		client:   client,
		endpoint: fmt.Sprintf(accountsLookupURL, projectID),
	}
}

// account is the portion of the lookup response we care about.
type account struct {
	Disabled bool
	// ValidSince is the unix time before which tokens are revoked.
	ValidSince int64
}

type lookupResponse struct {
	Users []struct {
		LocalID    string `json:"localId"`
		Disabled   bool   `json:"disabled"`
		ValidSince string `json:"validSince"`
	} `json:"users"`
}

func (a *accountLookup) lookup(ctx context.Context, uid string) (*account, error) {
	body, err := json.Marshal(map[string][]string{"localId": {uid}})
	if err != nil {
		return nil, fmt.Errorf("auth: encoding account lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: building account lookup: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling account lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: account lookup returned status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("auth: decoding account lookup: %w", err)
	}
	if len(out.Users) == 0 {
		// A deleted account cannot hold a valid token.
		return nil, fmt.Errorf("%w: no account for subject", ErrTokenRevoked)
	}

	u := out.Users[0]
	acc := &account{Disabled: u.Disabled}
	if u.ValidSince != "" {
		if acc.ValidSince, err = strconv.ParseInt(u.ValidSince, 10, 64); err != nil {
			return nil, fmt.Errorf("auth: parsing validSince %q: %w", u.ValidSince, err)
		}
	}
	return acc, nil
}
