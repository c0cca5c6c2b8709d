package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/db"
	"github.com/hackgods/registry-scheduling/internal/logging"
)

type catalogSeed struct {
	name                string
	slug                string
	kind                string
	requiresReferral    bool
	registrySpecialtyID string
}

var catalogSeeds = []catalogSeed{
	{"Терапевт", "therapist", "specialty", false, "10"},
	{"Хирург", "surgeon", "specialty", false, "11"},
	{"Офтальмолог", "ophthalmologist", "specialty", true, "12"},
	{"Оториноларинголог", "ent", "specialty", false, "13"},
	{"Невролог", "neurologist", "specialty", true, "14"},
	{"Кардиолог", "cardiologist", "specialty", true, "15"},
	{"Педиатр", "pediatrician", "specialty", false, "16"},
	{"УЗИ брюшной полости", "uzi-abdomen", "procedure", true, "90"},
	{"ЭКГ", "ecg", "procedure", false, "91"},
	{"Флюорография", "fluorography", "procedure", false, "92"},
}

func main() {
	_ = godotenv.Load()

	logger := logging.New("seed", os.Getenv("APP_ENV"), "info")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}
	facilityID := os.Getenv("REGISTRY_FACILITY_ID")
	if facilityID == "" {
		facilityID = "1"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedCatalog(context.Background(), pool, facilityID, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	if err := seedContacts(context.Background(), pool, faker, 2000, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed contacts")
	}

	logger.Info().Msg("seed complete")
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, facilityID string, logger zerolog.Logger) error {
	logger.Info().Int("entries", len(catalogSeeds)).Msg("seeding catalog")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range catalogSeeds {
		_, err := tx.Exec(ctx, `
			INSERT INTO catalog_entries (id, name, slug, kind, requires_referral, facility_id, registry_specialty_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE
			SET name = EXCLUDED.name,
			    kind = EXCLUDED.kind,
			    requires_referral = EXCLUDED.requires_referral,
			    facility_id = EXCLUDED.facility_id,
			    registry_specialty_id = EXCLUDED.registry_specialty_id
		`, uuid.NewString(), c.name, c.slug, c.kind, c.requiresReferral, facilityID, c.registrySpecialtyID)
		if err != nil {
			return fmt.Errorf("insert catalog entry %s: %w", c.slug, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("catalog seeded")
	return nil
}

// fakePhone renders a mobile number in one of the shapes patients type.
func fakePhone(faker *gofakeit.Faker) string {
	subscriber := faker.Numerify("9#########")
	switch faker.Number(0, 3) {
	case 0:
		return "8" + subscriber
	case 1:
		return "+7" + subscriber
	case 2:
		return fmt.Sprintf("+7 (%s) %s-%s-%s", subscriber[:3], subscriber[3:6], subscriber[6:8], subscriber[8:])
	default:
		return subscriber
	}
}

func seedContacts(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding contacts")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			userID := fmt.Sprintf("tg-%d", faker.Number(100000000, 999999999))

			_, err := tx.Exec(ctx, `
				INSERT INTO contacts (user_id, phone, display_name)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id) DO NOTHING
			`, userID, fakePhone(faker), faker.FirstName())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("contacts seeded")
	}

	return nil
}
