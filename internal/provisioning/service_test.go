package provisioning

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/config"
	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/logger"
)

var errUnique = errors.New("duplicate key value violates unique constraint")

type stubRepo struct {
	profilesByEmail map[string]*models.Profile
	credentials     map[uuid.UUID]*models.Credential

	failProfileUpsert    error
	failCredentialCreate error
	missFirstLookup      bool

	lookupCalls        int
	deletedCredentials []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		profilesByEmail: map[string]*models.Profile{},
		credentials:     map[uuid.UUID]*models.Credential{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	s.lookupCalls++
	if s.missFirstLookup && s.lookupCalls == 1 {
		return nil, gorm.ErrRecordNotFound
	}
	if p, ok := s.profilesByEmail[email]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if s.failProfileUpsert != nil {
		return s.failProfileUpsert
	}
	copied := *profile
	s.profilesByEmail[profile.Email] = &copied
	return nil
}

func (s *stubRepo) CreateCredential(ctx context.Context, credential *models.Credential) error {
	if s.failCredentialCreate != nil {
		return s.failCredentialCreate
	}
	copied := *credential
	s.credentials[credential.ID] = &copied
	return nil
}

func (s *stubRepo) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	delete(s.credentials, id)
	s.deletedCredentials = append(s.deletedCredentials, id)
	return nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(NewServiceParams{
		Repo:     repo,
		Password: testPasswordConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "provisioning-test", Output: io.Discard}),
		UniqueViolation: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "unique constraint")
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateOrUpdateUserIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	input := NewUserInput{
		Name:     "Maria Silva",
		Email:    "  Maria@Example.COM ",
		CPF:      "123.456.789-09",
		Whatsapp: "+55 (11) 98765-4321",
	}

	first, err := svc.CreateOrUpdateUser(context.Background(), input)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !first.IsNew {
		t.Fatalf("first call should report IsNew=true")
	}
	if first.Profile.Email != "maria@example.com" {
		t.Errorf("email not normalized: %q", first.Profile.Email)
	}
	if first.Profile.CPF != "12345678909" {
		t.Errorf("cpf not stripped: %q", first.Profile.CPF)
	}
	if first.Profile.Whatsapp != "5511987654321" {
		t.Errorf("whatsapp not stripped: %q", first.Profile.Whatsapp)
	}
	if !first.Profile.FirstAccess {
		t.Errorf("new profile should start with primeiro_acesso=true")
	}
	if len(first.Profile.Access) != 0 {
		t.Errorf("new profile should start with empty access, got %v", first.Profile.Access)
	}
	if _, ok := repo.credentials[first.UserID]; !ok {
		t.Fatalf("credential not created")
	}

	second, err := svc.CreateOrUpdateUser(context.Background(), input)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.IsNew {
		t.Fatalf("second call should report IsNew=false")
	}
	if second.UserID != first.UserID {
		t.Fatalf("second call resolved a different identity: %s vs %s", second.UserID, first.UserID)
	}
	if len(repo.credentials) != 1 {
		t.Fatalf("expected exactly one credential, got %d", len(repo.credentials))
	}
}

func TestCreateOrUpdateUserUpdatesExistingFields(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	first, err := svc.CreateOrUpdateUser(context.Background(), NewUserInput{
		Name:  "Maria",
		Email: "maria@example.com",
		CPF:   "12345678909",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	second, err := svc.CreateOrUpdateUser(context.Background(), NewUserInput{
		Name:     "Maria Souza",
		Email:    "maria@example.com",
		CPF:      "12345678909",
		Whatsapp: "11912345678",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.UserID != first.UserID {
		t.Fatalf("identity changed on update")
	}
	if second.Profile.Name != "Maria Souza" {
		t.Errorf("name not updated: %q", second.Profile.Name)
	}
	if second.Profile.Whatsapp != "11912345678" {
		t.Errorf("whatsapp not updated: %q", second.Profile.Whatsapp)
	}
}

func TestCreateOrUpdateUserCompensatesOnProfileFailure(t *testing.T) {
	repo := newStubRepo()
	repo.failProfileUpsert = errors.New("profiles table is on fire")
	svc := newTestService(t, repo)

	_, err := svc.CreateOrUpdateUser(context.Background(), NewUserInput{
		Name:  "Maria",
		Email: "maria@example.com",
		CPF:   "12345678909",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "create profile") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(repo.credentials) != 0 {
		t.Fatalf("credential should have been compensated away, %d remain", len(repo.credentials))
	}
	if len(repo.deletedCredentials) != 1 {
		t.Fatalf("expected one compensating delete, got %d", len(repo.deletedCredentials))
	}
}

func TestCreateOrUpdateUserConvergesOnRace(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	// Simulate losing the insert race: the first lookup misses but the insert
	// hits the unique email index, after which the winner's row is visible.
	winner := &models.Profile{ID: uuid.New(), Name: "Maria", Email: "maria@example.com", CPF: "12345678909"}
	repo.profilesByEmail["maria@example.com"] = winner
	repo.missFirstLookup = true
	repo.failCredentialCreate = errUnique

	res, err := svc.CreateOrUpdateUser(context.Background(), NewUserInput{
		Name:  "Maria",
		Email: "maria@example.com",
		CPF:   "12345678909",
	})
	if err != nil {
		t.Fatalf("race convergence: %v", err)
	}
	if res.IsNew {
		t.Fatalf("loser of the race should report IsNew=false")
	}
	if res.UserID != winner.ID {
		t.Fatalf("loser should resolve to the winner's identity")
	}
}

func TestCreateOrUpdateUserValidatesInput(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	cases := []NewUserInput{
		{Name: "Maria", CPF: "12345678909"},
		{Email: "maria@example.com", CPF: "12345678909"},
		{Name: "Maria", Email: "maria@example.com"},
	}
	for _, input := range cases {
		if _, err := svc.CreateOrUpdateUser(context.Background(), input); err == nil {
			t.Errorf("expected validation error for %+v", input)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("+55 (11) 9.8765-4321"); got != "5511987654321" {
		t.Errorf("DigitsOnly = %q", got)
	}
	if got := DigitsOnly("abc"); got != "" {
		t.Errorf("DigitsOnly(abc) = %q", got)
	}
}
