package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
	"github.com/ancsystem/anc-notifier/internal/repository"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the user directory and scheduled_appointment with fake data",
	RunE:  runSeed,
}

var seedOpts struct {
	patients     int
	doctors      int
	appointments int
	seed         int64
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.patients, "patients", 20, "number of patients to create")
	seedCmd.Flags().IntVar(&seedOpts.doctors, "doctors", 5, "number of doctors to create")
	seedCmd.Flags().IntVar(&seedOpts.appointments, "appointments", 0, "number of appointments to create; each insert fires a notification")
	seedCmd.Flags().Int64Var(&seedOpts.seed, "seed", 0, "random seed; 0 picks one")
}

type userCreator interface {
	Create(ctx context.Context, user *model.User) error
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, "text")

	if seedOpts.seed != 0 {
		if err := gofakeit.Seed(seedOpts.seed); err != nil {
			return fmt.Errorf("failed to seed generator: %w", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var users userCreator = repository.NewUserRepository(db)
	if cfg.Directory.Backend == "mongo" {
		mdb, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer mdb.Close(context.Background())
		users = repository.NewMongoUserRepository(mdb, cfg.Directory.Collection)
	}

	patients, err := seedUsers(ctx, users, seedOpts.patients, "patient")
	if err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	doctors, err := seedUsers(ctx, users, seedOpts.doctors, model.RoleDoctor)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	log.Info().Int("patients", len(patients)).Int("doctors", len(doctors)).Msg("users seeded")

	if seedOpts.appointments == 0 {
		return nil
	}
	if len(patients) == 0 || len(doctors) == 0 {
		return errors.New("appointments need at least one patient and one doctor")
	}

	appts := repository.NewAppointmentRepository(db)
	for i := 0; i < seedOpts.appointments; i++ {
		appt := fakeAppointment(
			patients[gofakeit.Number(0, len(patients)-1)],
			doctors[gofakeit.Number(0, len(doctors)-1)],
		)
		id, err := appts.Create(ctx, appt)
		if err != nil {
			return fmt.Errorf("seed appointment: %w", err)
		}
		log.Debug().Str("appointment_id", id).Msg("appointment created")
	}
	log.Info().Int("appointments", seedOpts.appointments).Msg("appointments seeded")
	return nil
}

func seedUsers(ctx context.Context, users userCreator, count int, role string) ([]*model.User, error) {
	created := make([]*model.User, 0, count)
	for i := 0; i < count; i++ {
		u := &model.User{
			Firstname: gofakeit.FirstName(),
			Surname:   gofakeit.LastName(),
			Role:      role,
			Email:     gofakeit.Email(),
			CreatedAt: time.Now(),
		}
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nil, err
		}
		created = append(created, u)
	}
	return created, nil
}

// fakeAppointment leaves the email out of roughly half the documents so the
// directory fallback gets exercised.
func fakeAppointment(patient, doctor *model.User) *model.Appointment {
	appt := &model.Appointment{
		PatientFirstname: patient.Firstname,
		PatientSurname:   patient.Surname,
		DoctorFirstname:  doctor.Firstname,
		DoctorSurname:    doctor.Surname,
		Notes: gofakeit.RandomString([]string{
			"Bring previous test results.",
			"Follow-up consultation.",
			"Fasting required for blood work.",
			"",
		}),
	}
	if gofakeit.Bool() {
		appt.PatientEmail = patient.Email
	}
	if gofakeit.Bool() {
		appt.DoctorEmail = doctor.Email
	}

	when := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 2, 0))
	appt.AppointmentDate, _ = json.Marshal(map[string]int64{
		"_seconds":     when.Unix(),
		"_nanoseconds": 0,
	})
	return appt
}
