package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/carehome"
	"github.com/hackgods/carehome-allocation/internal/config"
	"github.com/hackgods/carehome-allocation/internal/db"
	"github.com/hackgods/carehome-allocation/internal/facility"
	"github.com/hackgods/carehome-allocation/internal/logger"
)

// Staff mix per role. Doctors and nurses get ids DOC01.., NUR01...
var roster = []struct {
	role   care.Role
	prefix string
	count  int
}{
	{care.RoleManager, "MGR", 1},
	{care.RoleDoctor, "DOC", 4},
	{care.RoleNurse, "NUR", 12},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}
	log := logger.Must(cfg.LogLevel, "console", "seed")
	defer func() { _ = log.Sync() }()

	if cfg.StoreDriver != config.StorePostgres {
		log.Fatal("seed needs the postgres store", zap.String("store", cfg.StoreDriver))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	specs, err := facility.ParseLayout(cfg.FacilityLayout)
	if err != nil {
		log.Fatal("facility layout", zap.Error(err))
	}
	fac, err := facility.New(specs)
	if err != nil {
		log.Fatal("facility build", zap.Error(err))
	}
	if err := carehome.NewPgRepository(pool).EnsureBeds(ctx, fac); err != nil {
		log.Fatal("seed beds", zap.Error(err))
	}
	log.Info("beds seeded", zap.Int("count", fac.BedCount()))

	staff, err := seedStaff(ctx, pool)
	if err != nil {
		log.Fatal("seed staff", zap.Error(err))
	}
	log.Info("staff seeded", zap.Int("count", len(staff)))

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	for _, s := range staff {
		tok, _, err := tokens.Issue(s)
		if err != nil {
			log.Fatal("issue token", zap.Error(err))
		}
		fmt.Printf("%-6s %-8s %-24s %s\n", s.ID, s.Role, s.Username, tok)
	}

	log.Info("seed complete")
}

// seedStaff inserts the roster with fake names. Re-running keeps existing
// rows and returns them unchanged.
func seedStaff(ctx context.Context, pool *pgxpool.Pool) ([]care.Staff, error) {
	var out []care.Staff

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, group := range roster {
		for i := 1; i <= group.count; i++ {
			s := fakeStaff(group.role, fmt.Sprintf("%s%02d", group.prefix, i))

			var gender string
			err := tx.QueryRow(ctx, `
				INSERT INTO staff (id, first_name, last_name, gender, age, role, username, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now())
				ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
				RETURNING first_name, last_name, gender, age, username
			`, s.ID, s.FirstName, s.LastName, string(s.Gender), s.Age, string(s.Role), s.Username).
				Scan(&s.FirstName, &s.LastName, &gender, &s.Age, &s.Username)
			if err != nil {
				return nil, fmt.Errorf("insert %s: %w", s.ID, err)
			}
			s.Gender = care.Gender(gender)
			out = append(out, s)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func fakeStaff(role care.Role, id string) care.Staff {
	gender := care.GenderFemale
	if gofakeit.Bool() {
		gender = care.GenderMale
	}
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	return care.Staff{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Gender:    gender,
		Age:       gofakeit.Number(24, 64),
		Role:      role,
		Username:  strings.ToLower(first+"."+last) + "." + strings.ToLower(id),
	}
}
