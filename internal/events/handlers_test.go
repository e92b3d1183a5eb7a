package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2030, 5, 1, 18, 30, 0, 0, time.UTC)

	for _, raw := range []string{
		"2030-05-01T18:30:00Z",
		"2030-05-01T20:30:00+02:00",
		"2030-05-01T18:30:00.000Z",
		"2030-05-01T18:30:00",
		"2030-05-01T18:30",
		"2030-05-01 18:30",
	} {
		t.Run(raw, func(t *testing.T) {
			got, err := parseDate(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := parseDate("next friday")
	assert.Error(t, err)
}

func TestEventRequestToUpdate(t *testing.T) {
	title := "Go meetup"
	badDate := "tomorrow"

	t.Run("full update requires every field", func(t *testing.T) {
		_, err := eventRequest{Title: &title}.toUpdate(false)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, map[string]string{
			"description": "this field is required",
			"date":        "this field is required",
		}, appErr.Fields)
	})

	t.Run("partial update", func(t *testing.T) {
		in, err := eventRequest{Title: &title}.toUpdate(true)
		require.NoError(t, err)
		assert.Equal(t, &title, in.Title)
		assert.Nil(t, in.Description)
		assert.Nil(t, in.Date)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := eventRequest{Date: &badDate}.toUpdate(true)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "date")
	})
}

func TestEventRequestCapacityAndCategories(t *testing.T) {
	decode := func(t *testing.T, body string) eventRequest {
		t.Helper()
		var req eventRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	t.Run("absent fields are left alone", func(t *testing.T) {
		in, err := decode(t, `{"title": "x"}`).toUpdate(true)
		require.NoError(t, err)
		assert.False(t, in.SetMaxParticipants)
		assert.False(t, in.SetCategories)
	})

	t.Run("explicit null removes the limit", func(t *testing.T) {
		in, err := decode(t, `{"max_participants": null}`).toUpdate(true)
		require.NoError(t, err)
		assert.True(t, in.SetMaxParticipants)
		assert.Nil(t, in.MaxParticipants)
	})

	t.Run("values", func(t *testing.T) {
		in, err := decode(t, `{"max_participants": 12, "category_ids": [3, 1]}`).toUpdate(true)
		require.NoError(t, err)
		require.NotNil(t, in.MaxParticipants)
		assert.Equal(t, 12, *in.MaxParticipants)
		assert.True(t, in.SetCategories)
		assert.Equal(t, []uint{3, 1}, in.CategoryIDs)
	})

	t.Run("empty list clears categories", func(t *testing.T) {
		in, err := decode(t, `{"category_ids": []}`).toUpdate(true)
		require.NoError(t, err)
		assert.True(t, in.SetCategories)
		assert.Empty(t, in.CategoryIDs)
	})

	t.Run("wrong type", func(t *testing.T) {
		var req eventRequest
		assert.Error(t, json.Unmarshal([]byte(`{"max_participants": "ten"}`), &req))
	})
}
