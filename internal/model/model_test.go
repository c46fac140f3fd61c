package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photolog/internal/apperror"
)

// =========================================================================
// Optional
// =========================================================================

func TestOptional_DistinguishesAbsentNullAndValue(t *testing.T) {
	var absent, null, value PhotoPatch

	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"caption": null}`), &null))
	require.NoError(t, json.Unmarshal([]byte(`{"caption": "sunset", "approved": true}`), &value))

	assert.False(t, absent.Caption.Set)
	assert.False(t, absent.Approved.Set)

	assert.True(t, null.Caption.Set)
	assert.Nil(t, null.Caption.Value)

	require.True(t, value.Caption.Set)
	assert.Equal(t, "sunset", *value.Caption.Value)
	assert.True(t, value.Approved.Set)
	assert.True(t, value.Approved.Value)
}

func TestOptional_RecordsExplicitNull(t *testing.T) {
	var p PhotoPatch
	require.NoError(t, json.Unmarshal([]byte(`{"caption": null, "approved": null}`), &p))

	assert.True(t, p.Caption.Null)
	assert.True(t, p.Approved.Set)
	assert.True(t, p.Approved.Null)
	assert.False(t, p.Approved.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"approved": false}`), &p))
	assert.False(t, p.Approved.Null)
	assert.False(t, Some(true).Null)
}

func TestPhotoPatch_ValidateRejectsNullApproval(t *testing.T) {
	var p PhotoPatch
	require.NoError(t, json.Unmarshal([]byte(`{"approved": null}`), &p))
	err := p.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, json.Unmarshal([]byte(`{"caption": null}`), &p))
	p.Approved = Optional[bool]{}
	assert.NoError(t, p.Validate(), "a null caption clears it")
}

func TestPhotoPatch_ApplyTouchesOnlyPresentFields(t *testing.T) {
	caption := "original"
	ph := &Photo{Caption: &caption, Approved: true}

	PhotoPatch{Approved: Some(false)}.Apply(ph)

	assert.False(t, ph.Approved)
	require.NotNil(t, ph.Caption)
	assert.Equal(t, "original", *ph.Caption)

	PhotoPatch{Caption: Some[*string](nil)}.Apply(ph)
	assert.Nil(t, ph.Caption)
	assert.False(t, ph.Approved)
}

// =========================================================================
// FileSize
// =========================================================================

func TestFileSize_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want FileSize
	}{
		{"integer", int64(2048), SizeOf(2048)},
		{"numeric text", "4096", SizeOf(4096)},
		{"numeric bytes with spaces", []byte(" 12 "), SizeOf(12)},
		{"garbage text", "n/a", FileSize{}},
		{"empty text", "", FileSize{}},
		{"negative", int64(-5), FileSize{}},
		{"fractional float", 1.5, FileSize{}},
		{"whole float", float64(10), SizeOf(10)},
		{"float at int64 overflow", float64(1 << 63), FileSize{}},
		{"largest float below overflow", float64(1<<63 - 1024), SizeOf(1<<63 - 1024)},
		{"overflowing text", "9.223372036854775808e18", FileSize{}},
		{"null", nil, FileSize{}},
		{"unexpected type", true, FileSize{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FileSize
			require.NoError(t, got.Scan(tt.src))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSize_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A FileSize `json:"a"`
		B FileSize `json:"b"`
	}{A: SizeOf(7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7,"b":null}`, string(b))
}

func TestStorageUsage_Total(t *testing.T) {
	u := StorageUsage{Photos: 1, Covers: 2, Avatar: 3}
	assert.EqualValues(t, 6, u.Total())
}

// =========================================================================
// Pagination
// =========================================================================

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		req     PageRequest
		want    PageRequest
		wantErr bool
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, PageSize: 20}, false},
		{"explicit", PageRequest{Page: 3, PageSize: 50}, PageRequest{Page: 3, PageSize: 50}, false},
		{"upper bound", PageRequest{Page: 1, PageSize: 100}, PageRequest{Page: 1, PageSize: 100}, false},
		{"too large", PageRequest{Page: 1, PageSize: 101}, PageRequest{}, true},
		{"negative size", PageRequest{Page: 1, PageSize: -1}, PageRequest{}, true},
		{"negative page", PageRequest{Page: -2, PageSize: 10}, PageRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Normalize(DefaultPhotoPageSize)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPage_HasMore(t *testing.T) {
	tests := []struct {
		name     string
		req      PageRequest
		returned int
		total    int
		want     bool
	}{
		{"first of two pages", PageRequest{Page: 1, PageSize: 10}, 10, 15, true},
		{"last partial page", PageRequest{Page: 2, PageSize: 10}, 5, 15, false},
		{"exact fit", PageRequest{Page: 1, PageSize: 10}, 10, 10, false},
		{"empty", PageRequest{Page: 1, PageSize: 10}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewPage(make([]int, tt.returned), tt.total, tt.req)
			assert.Equal(t, tt.want, page.HasMore)
			assert.Len(t, page.Items, tt.returned)
		})
	}
}

func TestNewPage_NilItemsBecomeEmpty(t *testing.T) {
	page := NewPage[Photo](nil, 0, PageRequest{Page: 1, PageSize: 20})
	assert.NotNil(t, page.Items)
}

// =========================================================================
// Events
// =========================================================================

func TestEventPatch_Validate(t *testing.T) {
	long := string(make([]rune, 101))
	short := "abc"

	assert.NoError(t, EventPatch{}.Validate())
	assert.Error(t, EventPatch{Name: Some("   ")}.Validate())
	assert.Error(t, EventPatch{Name: Some(long)}.Validate())
	assert.Error(t, EventPatch{Password: Some(&short)}.Validate())
	assert.NoError(t, EventPatch{Password: Some[*string](nil)}.Validate())
}

func TestEventPatch_ValidateRejectsNullForRequiredFields(t *testing.T) {
	for _, body := range []string{
		`{"name": null}`,
		`{"is_active": null}`,
		`{"is_archived": null}`,
	} {
		t.Run(body, func(t *testing.T) {
			var p EventPatch
			require.NoError(t, json.Unmarshal([]byte(body), &p))
			assert.ErrorIs(t, p.Validate(), apperror.ErrValidation)
		})
	}

	var p EventPatch
	require.NoError(t, json.Unmarshal([]byte(`{"description": null, "date": null, "password": null}`), &p))
	assert.NoError(t, p.Validate())
}

func TestValidateEventPassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"too short", "abc", true},
		{"minimum", "abcd", false},
		{"ascii at character limit", strings.Repeat("a", MaxEventPasswordLength), false},
		{"over character limit", strings.Repeat("a", MaxEventPasswordLength+1), true},
		{"multi-byte at byte limit", strings.Repeat("密", 24), false},
		{"multi-byte over byte limit", strings.Repeat("密", 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventPassword(tt.pw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEventPatch_Apply(t *testing.T) {
	hash := func(s string) (string, error) { return "hashed:" + s, nil }
	oldHash := "hashed:old"
	e := &Event{Name: "Wedding", PasswordHash: &oldHash, IsActive: true}

	pw := "secret"
	require.NoError(t, EventPatch{Name: Some(" Reception "), Password: Some(&pw)}.Apply(e, hash))
	assert.Equal(t, "Reception", e.Name)
	require.NotNil(t, e.PasswordHash)
	assert.Equal(t, "hashed:secret", *e.PasswordHash)
	assert.True(t, e.IsActive)

	require.NoError(t, EventPatch{Password: Some[*string](nil), IsActive: Some(false)}.Apply(e, hash))
	assert.False(t, e.HasPassword())
	assert.False(t, e.IsActive)
}

func TestParseEventBulkAction(t *testing.T) {
	for _, a := range []string{"archive", "activate", "deactivate"} {
		got, err := ParseEventBulkAction(a)
		require.NoError(t, err)
		assert.Equal(t, EventBulkAction(a), got)
	}

	_, err := ParseEventBulkAction("delete")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestNewPublicEventView_HidesHostFields(t *testing.T) {
	hash := "x"
	e := &Event{ID: "e1", HostID: "host", Name: "Party", PasswordHash: &hash, IsActive: true}

	view := NewPublicEventView(e, 3)
	b, err := json.Marshal(view)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "host")
	assert.NotContains(t, string(b), "password_hash")
	assert.True(t, view.HasPassword)
	assert.Equal(t, 3, view.PhotoCount)
}

func TestNewHostEventView_FillsUpdatedAt(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := &Event{ID: "e1", CreatedAt: created}

	view := NewHostEventView(e, 7, "http://localhost:5173/e/e1")
	assert.Equal(t, created, view.UpdatedAt)
	assert.Equal(t, 7, view.PhotoCount)
	assert.Equal(t, "http://localhost:5173/e/e1", view.ShareLink)
}
