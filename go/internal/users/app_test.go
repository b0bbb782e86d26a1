package users

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/courtclock/go/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(Config{AdminUsername: "admin", AdminPassword: "admin", BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestAuthenticate(t *testing.T) {
	app := newTestApp(t)
	if err := app.AddOperator("op1", "secret"); err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	tests := []struct {
		name     string
		user     string
		pass     string
		want     models.Principal
		wantFail bool
	}{
		{name: "empty is viewer", want: models.Viewer()},
		{name: "admin", user: "admin", pass: "admin", want: models.Principal{Role: models.RoleAdmin, Username: "admin"}},
		{name: "operator", user: "op1", pass: "secret", want: models.Principal{Role: models.RoleOperator, Username: "op1"}},
		{name: "bad admin password", user: "admin", pass: "nope", wantFail: true},
		{name: "bad operator password", user: "op1", pass: "nope", wantFail: true},
		{name: "unknown user", user: "ghost", pass: "secret", wantFail: true},
		{name: "username only", user: "op1", wantFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Authenticate(tt.user, tt.pass)
			if tt.wantFail {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("err = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("principal = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAddOperatorValidation(t *testing.T) {
	app := newTestApp(t)
	if err := app.AddOperator("op1", "secret"); err != nil {
		t.Fatalf("AddOperator: %v", err)
	}

	tests := []struct {
		user, pass string
		want       error
	}{
		{"op1", "another", ErrOperatorExists},
		{"admin", "secret", ErrReservedUsername},
		{"Viewer", "secret", ErrReservedUsername},
		{"op2", "abc", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		if err := app.AddOperator(tt.user, tt.pass); !errors.Is(err, tt.want) {
			t.Errorf("AddOperator(%q) = %v, want %v", tt.user, err, tt.want)
		}
	}
	if err := app.AddOperator("  ", "secret"); err == nil {
		t.Error("AddOperator accepted a blank username")
	}
}

func TestOperatorLimit(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < MaxOperators; i++ {
		if err := app.AddOperator(fmt.Sprintf("op%d", i), "secret"); err != nil {
			t.Fatalf("AddOperator %d: %v", i, err)
		}
	}
	if err := app.AddOperator("one-more", "secret"); !errors.Is(err, ErrOperatorLimit) {
		t.Fatalf("err = %v, want ErrOperatorLimit", err)
	}
}

func TestRemoveOperator(t *testing.T) {
	app := newTestApp(t)
	app.Seed([]Credential{{"op1", "secret"}, {"op2", "secret"}, {"bad", "x"}})

	want := []models.Operator{{Username: "op1"}, {Username: "op2"}}
	if diff := cmp.Diff(want, app.Operators()); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}

	if err := app.RemoveOperator("op1"); err != nil {
		t.Fatalf("RemoveOperator: %v", err)
	}
	if err := app.RemoveOperator("op1"); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("second remove = %v, want ErrOperatorNotFound", err)
	}
	if _, err := app.Authenticate("op1", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("removed operator still authenticates: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	app := newTestApp(t)
	app.Seed([]Credential{{"op1", "secret"}})
	op := models.Principal{Role: models.RoleOperator, Username: "op1"}

	if err := app.ChangePassword(op, "wrong", "newpass"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong old password: %v", err)
	}
	if err := app.ChangePassword(op, "secret", "ab"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short new password: %v", err)
	}
	if err := app.ChangePassword(op, "secret", "newpass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := app.Authenticate("op1", "newpass"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if err := app.ChangePassword(models.Viewer(), "", "newpass"); err == nil {
		t.Fatal("viewer changed a password")
	}
}

func TestFactoryReset(t *testing.T) {
	app := newTestApp(t)
	app.Seed([]Credential{{"op1", "secret"}})
	admin := models.Principal{Role: models.RoleAdmin, Username: "admin"}
	if err := app.ChangePassword(admin, "admin", "changed"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	app.FactoryReset()

	if len(app.Operators()) != 0 {
		t.Fatalf("operators survived reset: %v", app.Operators())
	}
	if _, err := app.Authenticate("admin", "admin"); err != nil {
		t.Fatalf("admin password not restored: %v", err)
	}
}
