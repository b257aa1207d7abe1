package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hrbooteh/internal/config"
	"hrbooteh/internal/db"
	"hrbooteh/internal/domain"
	"hrbooteh/internal/repository"
	"hrbooteh/internal/service"
)

const cliOwner = "00000000-0000-0000-0000-000000000001"

func main() {
	assessmentType := flag.String("type", "independence", "assessment type")
	userContext := flag.String("context", "", "optional context about the user")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	var repo repository.AssessmentRepository = repository.NewMemoryAssessmentRepository()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal(err)
		}
		if err := ensureCLIUser(ctx, repository.NewPgUserRepository(pool)); err != nil {
			log.Fatal(err)
		}
		repo = repository.NewPgAssessmentRepository(pool)
	}

	responder, analyzer, err := service.NewPoliciesFromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	svc := service.NewAssessmentService(logger, repo, responder, analyzer)

	started, err := svc.Start(ctx, service.StartInput{
		OwnerID:        cliOwner,
		AssessmentType: *assessmentType,
		UserContext:    *userContext,
	})
	if err != nil {
		log.Fatalf("start assessment: %v", err)
	}

	fmt.Printf("---- Evaluacion %s (%s). Escribe 'salir' para terminar ----\n", *assessmentType, started.AssessmentID)
	fmt.Printf("Sistema > %s\n", started.Reply.Text)

	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("leer input: %v", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") {
			return
		}

		reply, err := svc.Advance(ctx, service.AdvanceInput{
			AssessmentID: started.AssessmentID,
			OwnerID:      cliOwner,
			Text:         text,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			if errors.Is(err, service.ErrInvalidState) {
				return
			}
			continue
		}
		fmt.Printf("Sistema > %s\n", reply.Text)
		if reply.AnalysisReady {
			break
		}
	}

	results, err := svc.GetResults(ctx, started.AssessmentID, cliOwner)
	if err != nil {
		log.Fatalf("obtener resultados: %v", err)
	}
	printResults(results)
}

func printResults(r service.Results) {
	fmt.Println("\n===== Resultado =====")
	fmt.Printf("Tipo: %s\n", r.Analysis.AssessmentType)
	fmt.Printf("Puntaje: %d/100\n", r.Analysis.Score)
	fmt.Printf("Resumen: %s\n", r.Analysis.Summary)
	fmt.Println("Recomendaciones:")
	for _, rec := range r.Analysis.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	fmt.Printf("Mensajes en el transcript: %d\n", len(r.Turns))
}

// ensureCLIUser crea el usuario fijo del CLI si no existe; las evaluaciones
// tienen FK a users.
func ensureCLIUser(ctx context.Context, users *repository.PgUserRepository) error {
	_, err := users.GetByID(ctx, cliOwner)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	err = users.Create(ctx, domain.User{
		ID:        cliOwner,
		Email:     "cli@hrbooteh.local",
		FullName:  "CLI",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil
	}
	return err
}
