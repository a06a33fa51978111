package idp_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ggoodman/incognito-go/idp"
	"github.com/ggoodman/incognito-go/idp/idptest"
	"github.com/ggoodman/incognito-go/user"
)

func TestRepositoryFind(t *testing.T) {
	fake := idptest.New(testCreds)
	fake.Now = func() time.Time { return testNow }
	fake.AddUser("alice", goodPassword, "CONFIRMED",
		idp.AttributeType{Name: "sub", Value: "0f4c-alice"},
		idp.AttributeType{Name: "email", Value: "alice@example.com"},
	)
	repo := idp.NewUserRepository(idp.NewUserQueryService(fake, testCreds))

	u, err := repo.Find(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.ID != "0f4c-alice" {
		t.Fatalf("ID = %q", u.ID)
	}
	if u.Username.String() != "alice" {
		t.Fatalf("Username = %q", u.Username)
	}
	if email, ok := u.Attribute("email"); !ok || email.Value() != "alice@example.com" {
		t.Fatalf("email = %v, %v", email, ok)
	}
	if u.Status != user.StatusConfirmed || !u.Enabled {
		t.Fatalf("unexpected status %v enabled %v", u.Status, u.Enabled)
	}
	if !u.CreatedAt().Equal(testNow) || !u.UpdatedAt.Equal(testNow) {
		t.Fatalf("unexpected timestamps %v %v", u.CreatedAt(), u.UpdatedAt)
	}

	_, err = repo.Find(context.Background(), "mallory")
	if !errors.Is(err, idp.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRepositoryFindAll(t *testing.T) {
	fake := idptest.New(testCreds)
	fake.PageSize = 2
	var want []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user%d", i)
		fake.AddUser(name, goodPassword, "CONFIRMED")
		want = append(want, name)
	}
	repo := idp.NewUserRepository(idp.NewUserQueryService(fake, testCreds))

	users, err := repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	var got []string
	for _, u := range users {
		if u.ID == "" {
			t.Fatalf("user %s has no id", u.Username)
		}
		got = append(got, u.Username.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("usernames mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryList(t *testing.T) {
	fake := idptest.New(testCreds)
	fake.PageSize = 1
	fake.AddUser("a", goodPassword, "CONFIRMED")
	fake.AddUser("b", goodPassword, "CONFIRMED")
	q := idp.NewUserQueryService(fake, testCreds)

	page, err := q.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].Username != "a" || page.PaginationToken == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	page, err = q.List(context.Background(), page.PaginationToken)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].Username != "b" || page.PaginationToken != "" {
		t.Fatalf("unexpected last page %+v", page)
	}
}

func TestMapUser(t *testing.T) {
	rec := &idp.UserRecord{
		Username:       "erin",
		UserAttributes: []idp.AttributeType{{Name: "sub", Value: "abc"}},
		UserStatus:     "RESET_REQUIRED",
	}
	u, err := idp.MapUser(rec)
	if err != nil {
		t.Fatalf("MapUser: %v", err)
	}
	if u.ID != "abc" || u.Status != user.StatusResetRequired || u.Enabled {
		t.Fatalf("unexpected user %+v", u)
	}

	// Attributes wins over UserAttributes when both are present.
	rec.Attributes = []idp.AttributeType{{Name: "sub", Value: "def"}}
	if u, err = idp.MapUser(rec); err != nil || u.ID != "def" {
		t.Fatalf("MapUser = %v, %v", u, err)
	}

	bad := []*idp.UserRecord{
		{Username: "", UserStatus: "CONFIRMED"},
		{Username: "x", UserStatus: "SLEEPING"},
		{Username: "x", UserStatus: "CONFIRMED", Attributes: []idp.AttributeType{{Name: "a", Value: "1"}, {Name: "a", Value: "2"}}},
	}
	for _, rec := range bad {
		if _, err := idp.MapUser(rec); !errors.Is(err, user.ErrInvalid) {
			t.Fatalf("MapUser(%+v): expected ErrInvalid, got %v", rec, err)
		}
	}
}
