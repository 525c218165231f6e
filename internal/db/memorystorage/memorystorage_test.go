package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		require.NoError(t, err, "The memorystorage.New() should not return error")
		ctx := context.Background()

		transaction, err := theStorage.BeginTransaction(ctx)
		assert.NoError(t, err)
		assert.Nil(t, transaction)

		aliceID, err := theStorage.CreateUser(ctx, &models.User{
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: "hash",
		}, transaction)
		require.NoError(t, err)
		assert.NoError(t, theStorage.CommitTransaction(transaction))

		exists, err := theStorage.UserExists(ctx, "alice", "x@example.com", nil)
		assert.NoError(t, err)
		assert.True(t, exists)

		usr, err := theStorage.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, aliceID, usr.ID)
		assert.Equal(t, "hash", usr.PasswordHash)

		_, err = theStorage.GetUserByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}

func TestCreateUserConflict(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = theStorage.CreateUser(ctx, &models.User{Username: "alice", Email: "a@example.com"}, nil)
	require.NoError(t, err)

	_, err = theStorage.CreateUser(ctx, &models.User{Username: "bob", Email: "a@example.com"}, nil)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = theStorage.CreateUser(ctx, &models.User{Username: "alice", Email: "b@example.com"}, nil)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestConcurrentRegistrationWithSameEmail(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := theStorage.CreateUser(context.Background(), &models.User{
				Username: fmt.Sprintf("user%d", i),
				Email:    "same@example.com",
			}, nil)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestNotes(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	notes, err := theStorage.GetUserNotes(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	firstID, err := theStorage.CreateNote(ctx, &models.Note{Title: "first", Content: "a", UserID: 1})
	require.NoError(t, err)
	secondID, err := theStorage.CreateNote(ctx, &models.Note{Title: "second", Content: "b", UserID: 1})
	require.NoError(t, err)
	foreignID, err := theStorage.CreateNote(ctx, &models.Note{Title: "other", Content: "c", UserID: 2})
	require.NoError(t, err)

	notes, err = theStorage.GetUserNotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, secondID, notes[0].ID)
	assert.Equal(t, firstID, notes[1].ID)

	_, err = theStorage.GetNote(ctx, 1, foreignID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = theStorage.UpdateNote(ctx, &models.Note{ID: foreignID, Title: "x", UserID: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, theStorage.DeleteNote(ctx, 1, foreignID), models.ErrNotFound)

	updated, err := theStorage.UpdateNote(ctx, &models.Note{ID: firstID, Title: "renamed", Content: "", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "", updated.Content)

	// Returned notes are copies.
	updated.Title = "mutated"
	note, err := theStorage.GetNote(ctx, 1, firstID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", note.Title)

	require.NoError(t, theStorage.DeleteNote(ctx, 1, firstID))
	_, err = theStorage.GetNote(ctx, 1, firstID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	otherNote, err := theStorage.GetNote(ctx, 2, foreignID)
	require.NoError(t, err)
	assert.Equal(t, "other", otherNote.Title)
}
