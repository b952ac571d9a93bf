package services

import (
	"testing"

	"moneta/internal/testutil"
)

func TestCreateTag(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTagService(db)
		user := testutil.CreateTestUser(t, db)

		tag, err := svc.CreateTag(user.ID, "viagem  2025", "#FF0000")
		testutil.AssertNoError(t, err)

		if tag.Name != "viagem 2025" {
			t.Errorf("expected collapsed name, got %q", tag.Name)
		}
		if tag.Color != "#FF0000" {
			t.Errorf("expected color to be kept, got %s", tag.Color)
		}
	})

	t.Run("duplicate_case_insensitive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTagService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestTag(t, db, user.ID, "Trabalho")

		_, err := svc.CreateTag(user.ID, "trabalho", "")
		testutil.AssertAppError(t, err, "DUPLICATE_TAG")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTagService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateTag(user.ID, " ", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserTags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTagService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	testutil.CreateTestTag(t, db, user.ID, "b")
	testutil.CreateTestTag(t, db, user.ID, "a")
	testutil.CreateTestTag(t, db, other.ID, "c")

	tags, err := svc.GetUserTags(user.ID)
	testutil.AssertNoError(t, err)

	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Name != "a" {
		t.Errorf("expected tags ordered by name, got %s first", tags[0].Name)
	}
}
