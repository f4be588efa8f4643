package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"booking-api/internal/config"
	"booking-api/internal/db"
	"booking-api/internal/repository"
	"booking-api/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	credentials := service.NewCredentialStore(cfg.BcryptCost)
	accountSvc := service.NewAccountService(service.AccountDeps{
		Logger:      logger,
		Accounts:    accountRepo,
		Credentials: credentials,
		PhoneRegion: cfg.DefaultPhoneRegion,
	})

	fmt.Println("===== Create admin =====")
	emailAddr := readLine(reader, "Email: ")

	if _, err := accountRepo.GetByEmail(ctx, strings.ToLower(emailAddr)); err == nil {
		answer := readLine(reader, "La cuenta ya existe. ¿Promover a admin? [s/N]: ")
		if !strings.EqualFold(answer, "s") {
			fmt.Println("Sin cambios.")
			return
		}
		account, err := accountSvc.Promote(ctx, emailAddr)
		if err != nil {
			log.Fatalf("promover: %v", err)
		}
		fmt.Printf("Cuenta %s promovida a admin.\n", account.ID)
		return
	}

	input := service.RegisterInput{
		Email:    emailAddr,
		Name:     readLine(reader, "Nombre: "),
		Password: readLine(reader, "Contraseña: "),
		Mobile:   readLine(reader, "Móvil: "),
		Address: service.AddressInput{
			Line1:    readLine(reader, "Dirección: "),
			Landmark: readLine(reader, "Referencia (opcional): "),
			Pincode:  readLine(reader, "Código postal: "),
		},
	}

	account, err := accountSvc.CreateAdmin(ctx, input)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			for field, msg := range ve.Fields {
				fmt.Printf("  %s: %s\n", field, msg)
			}
		}
		log.Fatalf("crear admin: %v", err)
	}
	fmt.Printf("Admin creado: %s (%s)\n", account.ID, account.Email)
}

func readLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
