package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacemind/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	professionals, err := seedProfessionals(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, professionals, 10); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedTriageRecords(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed triage records: %v", err)
	}

	log.Println("seed complete")
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, temp_password, created_at)
			VALUES ($1, $2, $3, $4, now())
		`, id, name, email, gofakeit.Password(true, true, true, false, false, 12))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

// seedAvailability opens daysAhead weekdays of 50-minute slots per
// professional, 09:00 to 17:00 with a 10-minute gap.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, professionals []uuid.UUID, daysAhead int) error {
	log.Printf("seeding availability for %d professionals over %d days", len(professionals), daysAhead)

	const (
		slotDuration = 50 * time.Minute
		slotGap      = 10 * time.Minute
	)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	day := time.Now().Truncate(24 * time.Hour)
	for d := 0; d < daysAhead; d++ {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, time.UTC)

		for _, ownerID := range professionals {
			for cursor := dayStart; !cursor.Add(slotDuration).After(dayEnd); cursor = cursor.Add(slotDuration + slotGap) {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, owner_id, start_time, end_time, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, FALSE, now(), now())
				`, uuid.New(), ownerID, cursor, cursor.Add(slotDuration))
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("availability seeded: %d slots", total)
	return nil
}

func seedTriageRecords(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d triage records", count)

	kinds := []string{"patient", "patient", "patient", "professional", "company"}

	const batchSize = 100

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
			answers, _ := json.Marshal(map[string]any{
				"reason":        gofakeit.Sentence(8),
				"referred_by":   gofakeit.RandomString([]string{"search", "friend", "doctor", "company"}),
				"prior_therapy": gofakeit.Bool(),
			})

			_, err := tx.Exec(ctx, `
				INSERT INTO triage_records (id, kind, name, email, phone, answers, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, 'pending', now(), now())
			`, uuid.New(),
				kinds[gofakeit.Number(0, len(kinds)-1)],
				gofakeit.Name(),
				gofakeit.Email(),
				gofakeit.Phone(),
				answers)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("triage records seeded: %d/%d", end, count)
	}

	log.Println("triage records seeded")
	return nil
}
