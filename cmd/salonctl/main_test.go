package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/jwt"
)

func TestFlowNormalizeCommand(t *testing.T) {
	tests := []struct {
		steps string
		want  string
	}{
		{"service,time,confirm", `["service","technician","time","confirm"]`},
		{"", `["service","technician","time","confirm"]`},
		{"garbage, ,service,service", `["service","technician","time","confirm"]`},
		{"location,details", `["location","service","technician","time","details","confirm"]`},
	}

	for _, tt := range tests {
		t.Run(tt.steps, func(t *testing.T) {
			var out bytes.Buffer
			root := newRootCmd()
			root.SetOut(&out)
			root.SetArgs([]string{"flow", "normalize", "--steps", tt.steps})

			if err := root.Execute(); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIssueStaffToken(t *testing.T) {
	tokens := jwt.NewService("secret", time.Hour)
	member := &salon.StaffMember{ID: uuid.New(), SalonID: uuid.New(), Role: jwt.RoleOwner, IsActive: true}

	token, err := issueStaffToken(tokens, member)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.SalonID != member.SalonID || claims.Role != jwt.RoleOwner {
		t.Fatalf("unexpected claims %+v", claims)
	}

	member.IsActive = false
	if _, err := issueStaffToken(tokens, member); !errors.Is(err, errStaffInactive) {
		t.Fatalf("expected errStaffInactive, got %v", err)
	}
	if _, err := issueStaffToken(tokens, nil); !errors.Is(err, errStaffInactive) {
		t.Fatalf("expected errStaffInactive for missing member, got %v", err)
	}
}
