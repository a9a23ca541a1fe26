package service

import (
	"fmt"
	"strings"

	goaway "github.com/TwiN/go-away"
	"golang.org/x/text/unicode/norm"
)

// ProfanityChecker is satisfied by goaway's detector.
type ProfanityChecker interface {
	IsProfane(s string) bool
}

type defaultProfanityChecker struct{}

func (defaultProfanityChecker) IsProfane(s string) bool {
	return goaway.IsProfane(s)
}

// normalizeName composes unicode to NFC and collapses runs of whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *RegistrationService) validate(p *CreateRegistrationParams) error {
	p.TeamName = normalizeName(p.TeamName)
	p.LeaderName = normalizeName(p.LeaderName)
	p.College = normalizeName(p.College)
	p.Phone = strings.TrimSpace(p.Phone)
	p.LeaderEmail = normalizeEmail(p.LeaderEmail)

	switch {
	case p.TeamName == "":
		return &ValidationError{Field: "team_name", Message: "is required"}
	case p.LeaderName == "":
		return &ValidationError{Field: "leader_name", Message: "is required"}
	case p.College == "":
		return &ValidationError{Field: "college", Message: "is required"}
	case p.LeaderEmail == "":
		return &ValidationError{Field: "leader_email", Message: "is required"}
	}

	if s.profanity.IsProfane(p.TeamName) {
		return &ValidationError{Field: "team_name", Message: "contains inappropriate language"}
	}

	size := len(p.Members) + 1
	if size < s.opts.MinMembers || size > s.opts.MaxMembers {
		return &ValidationError{
			Field:   "members",
			Message: fmt.Sprintf("team size must be between %d and %d including the leader", s.opts.MinMembers, s.opts.MaxMembers),
		}
	}

	seen := map[string]bool{p.LeaderEmail: true}
	for i := range p.Members {
		m := &p.Members[i]
		m.Name = normalizeName(m.Name)
		m.Email = normalizeEmail(m.Email)

		if m.Name == "" || m.Email == "" {
			return &ValidationError{Field: fmt.Sprintf("members[%d]", i), Message: "name and email are required"}
		}
		if seen[m.Email] {
			return &ValidationError{Field: fmt.Sprintf("members[%d].email", i), Message: "is used by another team member"}
		}
		seen[m.Email] = true
	}

	return nil
}
