package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/workflow"
)

// OrgFile is the YAML seed format: users keyed by a local handle so that
// reporting lines can refer to each other, plus optional review cycles.
type OrgFile struct {
	Users  []SeedUser  `yaml:"users"`
	Cycles []SeedCycle `yaml:"cycles"`
}

type SeedUser struct {
	Key      string `yaml:"key"`
	Email    string `yaml:"email"`
	FullName string `yaml:"fullName"`
	Role     string `yaml:"role"`
	Manager  string `yaml:"manager"`
	Inactive bool   `yaml:"inactive"`
}

type SeedCycle struct {
	Name                    string `yaml:"name"`
	StartDate               string `yaml:"startDate"`
	EndDate                 string `yaml:"endDate"`
	RequiresManagerApproval bool   `yaml:"requiresManagerApproval"`
	EvidenceMandatory       bool   `yaml:"evidenceMandatory"`
	Active                  bool   `yaml:"active"`
}

type SeedResult struct {
	UsersCreated  int
	CyclesCreated int
}

func LoadOrgFile(path string) (OrgFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return OrgFile{}, err
	}
	defer f.Close()
	return ParseOrg(f)
}

func ParseOrg(r io.Reader) (OrgFile, error) {
	var org OrgFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&org); err != nil && !errors.Is(err, io.EOF) {
		return OrgFile{}, fmt.Errorf("parse org file: %w", err)
	}
	return org, org.validate()
}

func (o OrgFile) validate() error {
	keys := map[string]bool{}
	for _, u := range o.Users {
		if u.Key == "" || u.Email == "" {
			return fmt.Errorf("seed user needs key and email: %+v", u)
		}
		if keys[u.Key] {
			return fmt.Errorf("duplicate seed user key %q", u.Key)
		}
		keys[u.Key] = true
		if _, ok := auth.ParseRole(u.Role); !ok {
			return fmt.Errorf("seed user %q has unknown role %q", u.Key, u.Role)
		}
	}
	for _, u := range o.Users {
		if u.Manager != "" && !keys[u.Manager] {
			return fmt.Errorf("seed user %q references unknown manager %q", u.Key, u.Manager)
		}
	}
	return nil
}

// Seed creates users and cycles that do not exist yet. Users are matched by
// e-mail and cycles by name, so running it twice is harmless. Users are
// created in file order; a manager must appear before their reports.
func Seed(ctx context.Context, users directory.StoreAPI, cycleStore cycles.StoreAPI, org OrgFile) (SeedResult, error) {
	var result SeedResult
	ids := map[string]int64{}
	now := time.Now().UTC()

	for _, su := range org.Users {
		email := strings.ToLower(strings.TrimSpace(su.Email))
		existing, err := users.GetUserByEmail(ctx, email)
		if err == nil {
			ids[su.Key] = existing.ID
			continue
		}
		if !errors.Is(err, workflow.ErrNotFound) {
			return result, err
		}

		user := directory.User{
			Email:     email,
			FullName:  su.FullName,
			Role:      auth.Role(su.Role),
			Status:    directory.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if su.Inactive {
			user.Status = directory.StatusInactive
		}
		if su.Manager != "" {
			managerID, ok := ids[su.Manager]
			if !ok {
				return result, fmt.Errorf("seed user %q listed before manager %q", su.Key, su.Manager)
			}
			user.ManagerID = &managerID
		}
		created, err := users.CreateUser(ctx, user)
		if err != nil {
			return result, fmt.Errorf("seed user %q: %w", su.Key, err)
		}
		ids[su.Key] = created.ID
		result.UsersCreated++
	}

	existing, err := cycleStore.ListCycles(ctx, "")
	if err != nil {
		return result, err
	}
	names := map[string]bool{}
	for _, c := range existing {
		names[c.Name] = true
	}
	for _, sc := range org.Cycles {
		if names[sc.Name] {
			continue
		}
		start, err := time.Parse(time.DateOnly, sc.StartDate)
		if err != nil {
			return result, fmt.Errorf("seed cycle %q: start date: %w", sc.Name, err)
		}
		end, err := time.Parse(time.DateOnly, sc.EndDate)
		if err != nil {
			return result, fmt.Errorf("seed cycle %q: end date: %w", sc.Name, err)
		}
		status := cycles.StatusDraft
		if sc.Active {
			status = cycles.StatusActive
		}
		if _, err := cycleStore.CreateCycle(ctx, cycles.Cycle{
			Name:                    sc.Name,
			StartDate:               start,
			EndDate:                 end,
			Status:                  status,
			RequiresManagerApproval: sc.RequiresManagerApproval,
			EvidenceMandatory:       sc.EvidenceMandatory,
			CreatedAt:               now,
			UpdatedAt:               now,
		}); err != nil {
			return result, fmt.Errorf("seed cycle %q: %w", sc.Name, err)
		}
		result.CyclesCreated++
	}

	slog.Info("seed complete", "usersCreated", result.UsersCreated, "cyclesCreated", result.CyclesCreated)
	return result, nil
}
