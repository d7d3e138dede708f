package orgapi

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"orgmgr/internal/lifecycle"
)

// SeedFile lists organizations provisioned at startup.
type SeedFile struct {
	Organizations []SeedOrg `yaml:"organizations"`
}

type SeedOrg struct {
	Name     string `yaml:"organization_name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func loadSeed(path string) (SeedFile, error) {
	var f SeedFile
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("yaml parse: %w", err)
	}
	return f, nil
}

// ImportSeed creates every organization in path that does not exist yet and returns
// how many were created.
func ImportSeed(ctx context.Context, svc Service, log *zap.SugaredLogger, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	f, err := loadSeed(path)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, o := range f.Organizations {
		_, err := svc.Create(ctx, o.Name, o.Email, o.Password)
		switch {
		case err == nil:
			created++
		case errors.Is(err, lifecycle.ErrAlreadyExists):
			log.Debugw("seed organization exists", "tenant", o.Name)
		default:
			return created, fmt.Errorf("seed %q: %w", o.Name, err)
		}
	}
	log.Infow("seed imported", "file", path, "created", created)
	return created, nil
}
