package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"clinic/internal/auth"
	"clinic/internal/config"
	"clinic/internal/db"
	apperrors "clinic/internal/errors"
	"clinic/internal/logging"
	"clinic/internal/model"
	"clinic/internal/repository"
)

const demoPassword = "Clinic123!"

type demoUser struct {
	user     model.User
	employee *model.Employee
	doctor   *model.Doctor
	patient  *model.Patient
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
	logger.Info().Str("password", demoPassword).Msg("seed completed")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	gormDB, err := db.NewMySQL(cfg.DSN(), false)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	pool := db.NewPool(sqlDB, db.PoolConfig{Size: 2, AcquireTimeout: cfg.DBAcquireTimeout})
	defer pool.Close()

	exec := db.NewExecutor(pool, logger)
	users := repository.NewUserRepository(exec)
	branches := repository.NewBranchRepository(exec)

	branch, err := ensureBranch(ctx, branches, model.Branch{Name: "Main Clinic", Address: "1 Health Ave", Phone: "555-0100"})
	if err != nil {
		return err
	}
	logger.Info().Uint("branch_id", branch.ID).Msg("branch ready")

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	demo := []demoUser{
		{
			user:     model.User{Email: "admin@clinic.local", UserType: model.UserTypeEmployee, FullName: "Ada Admin"},
			employee: &model.Employee{Role: model.RoleAdmin, BranchID: &branch.ID, Salary: decimal.NewFromInt(6000), IsActive: true},
		},
		{
			user:     model.User{Email: "doctor@clinic.local", UserType: model.UserTypeEmployee, FullName: "Dr. Omar Haddad"},
			employee: &model.Employee{Role: model.RoleDoctor, BranchID: &branch.ID, Salary: decimal.NewFromInt(9000), IsActive: true},
			doctor:   &model.Doctor{LicenseNumber: "MD-0001", Specialization: "general practice", ConsultationFee: decimal.RequireFromString("45.00")},
		},
		{
			user:    model.User{Email: "patient@clinic.local", UserType: model.UserTypePatient, FullName: "Pat Patient"},
			patient: &model.Patient{BloodType: "O+", Phone: "555-0199", IsActive: true},
		},
	}

	ids := map[string]uint{}
	for _, d := range demo {
		d.user.PasswordHash = hash
		id, created, err := ensureUser(ctx, users, d)
		if err != nil {
			return fmt.Errorf("seed %s: %w", d.user.Email, err)
		}
		ids[d.user.Email] = id
		logger.Info().Str("email", d.user.Email).Uint("user_id", id).Bool("created", created).Msg("user ready")
	}

	return seedSchedule(ctx, exec, branch.ID, ids["doctor@clinic.local"], ids["patient@clinic.local"], logger)
}

func ensureBranch(ctx context.Context, repo repository.BranchRepository, want model.Branch) (*model.Branch, error) {
	existing, err := repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Name == want.Name {
			return &existing[i], nil
		}
	}
	if err := repo.Create(ctx, &want); err != nil {
		return nil, err
	}
	return &want, nil
}

func ensureUser(ctx context.Context, repo repository.UserRepository, d demoUser) (uint, bool, error) {
	existing, err := repo.FindByEmail(ctx, d.user.Email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, false, err
	}

	user := d.user
	err = repo.WithTransaction(ctx, func(ctx context.Context, tx repository.UserRepository) error {
		if err := tx.CreateUser(ctx, &user); err != nil {
			return err
		}
		if d.employee != nil {
			d.employee.UserID = user.ID
			if err := tx.CreateEmployee(ctx, d.employee); err != nil {
				return err
			}
		}
		if d.doctor != nil {
			d.doctor.UserID = user.ID
			if err := tx.CreateDoctor(ctx, d.doctor); err != nil {
				return err
			}
		}
		if d.patient != nil {
			d.patient.UserID = user.ID
			return tx.CreatePatient(ctx, d.patient)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return user.ID, true, nil
}

// seedSchedule gives the demo doctor tomorrow's morning slots and books the
// first one for the demo patient.
func seedSchedule(ctx context.Context, exec *db.Executor, branchID, doctorID, patientID uint, logger zerolog.Logger) error {
	day := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)

	rec, _, err := exec.QueryOne(ctx,
		`SELECT COUNT(*) AS n FROM time_slots WHERE doctor_id = ? AND slot_date = ?`, doctorID, day)
	if err != nil {
		return err
	}
	if rec.Int64("n") > 0 {
		logger.Info().Str("date", day).Msg("schedule already seeded")
		return nil
	}

	return exec.WithTx(ctx, func(tx *db.Tx) error {
		var first int64
		for i, start := range []string{"09:00:00", "09:30:00", "10:00:00"} {
			end := []string{"09:30:00", "10:00:00", "10:30:00"}[i]
			res, err := tx.Exec(ctx,
				`INSERT INTO time_slots (doctor_id, slot_date, start_time, end_time, is_available) VALUES (?, ?, ?, ?, ?)`,
				doctorID, day, start, end, i != 0)
			if err != nil {
				return err
			}
			if i == 0 {
				first = res.LastInsertID
			}
		}
		now := time.Now().UTC()
		_, err := tx.Exec(ctx,
			`INSERT INTO appointments (patient_id, doctor_id, branch_id, time_slot_id, status, reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			patientID, doctorID, branchID, first, model.AppointmentStatusScheduled, "annual checkup", now, now)
		if err == nil {
			logger.Info().Str("date", day).Msg("schedule seeded")
		}
		return err
	})
}
