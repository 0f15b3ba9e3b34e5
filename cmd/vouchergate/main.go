package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/config"
	"github.com/vouchersys/vouchergate/internal/filestore"
	"github.com/vouchersys/vouchergate/internal/flow"
	"github.com/vouchersys/vouchergate/internal/handler"
	"github.com/vouchersys/vouchergate/internal/job"
	"github.com/vouchersys/vouchergate/internal/ledger"
	"github.com/vouchersys/vouchergate/internal/middleware"
	"github.com/vouchersys/vouchergate/internal/model"
	"github.com/vouchersys/vouchergate/internal/schedule"
	"github.com/vouchersys/vouchergate/internal/service"
	"github.com/vouchersys/vouchergate/internal/store"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "vouchergate",
		Short: "voucher accounting gateway",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	var kind, id, no string
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "delete a voucher through the OTP challenge flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runDelete(cfg, kind, id, no)
		},
	}
	deleteCmd.Flags().StringVar(&kind, "kind", "", "voucher type: cash or cheque")
	deleteCmd.Flags().StringVar(&id, "id", "", "voucher id")
	deleteCmd.Flags().StringVar(&no, "no", "", "voucher number shown in the OTP email")

	rootCmd.AddCommand(runCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.OTP.Store != "sql" {
		return store.NewMemory(), nil
	}
	db, err := store.OpenSQL(cfg.OTP.Driver, cfg.OTP.DSN)
	if err != nil {
		return nil, fmt.Errorf("open challenge store: %w", err)
	}
	return store.NewSQL(db), nil
}

func buildServices(cfg *config.Config) (*service.ChallengeService, *service.DeletionService, *ledger.Client, store.Store, error) {
	st, err := buildStore(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	client := &http.Client{Timeout: time.Duration(cfg.RecordStore.TimeoutSeconds) * time.Second}
	ledgerClient, err := ledger.New(cfg.RecordStore.BaseURL, client)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init record store client: %w", err)
	}
	sender := service.NewEmailSender(cfg.Mail)
	challenges := service.NewChallengeService(st, sender, cfg.OTP.Recipient)
	deletions := service.NewDeletionService(challenges, ledgerClient)
	return challenges, deletions, ledgerClient, st, nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("record_store", cfg.RecordStore.BaseURL),
		zap.String("otp_store", cfg.OTP.Store),
	)

	challenges, deletions, ledgerClient, st, err := buildServices(cfg)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: time.Duration(cfg.RecordStore.TimeoutSeconds) * time.Second}
	deps := handler.RouterDeps{
		OTP:          handler.NewOTPHandler(challenges, deletions),
		Vouchers:     handler.NewVoucherHandler(ledgerClient),
		Images:       handler.NewImageHandler(client, ledgerClient, cfg.ImageCache.Entries, time.Duration(cfg.ImageCache.TTLSeconds)*time.Second),
		SendCooldown: time.Duration(cfg.OTP.SendCooldownSeconds) * time.Second,
	}
	if cfg.Snapshot.Type != "" {
		snapStore, err := filestore.New(cfg.Snapshot)
		if err != nil {
			return fmt.Errorf("init snapshot store: %w", err)
		}
		deps.Snapshots = handler.NewSnapshotHandler(snapStore)
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewChallengeSweepJob(st), "*/5 * * * *"); err != nil {
		return fmt.Errorf("schedule challenge sweep: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// runDelete walks one voucher deletion through the full challenge flow on
// the terminal: issue a code, count the window down between prompts, and
// submit whatever the operator types.
func runDelete(cfg *config.Config, kindArg, id, no string) error {
	kind, ok := model.ParseVoucherKind(kindArg)
	if !ok {
		return fmt.Errorf("voucher type must be cash or cheque")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("--id is required")
	}

	challenges, deletions, _, _, err := buildServices(cfg)
	if err != nil {
		return err
	}
	dialog := flow.NewDialog(challenges, deletions, model.VoucherRef{
		VoucherID:   id,
		VoucherKind: kind,
		VoucherNo:   no,
	})

	ctx := context.Background()
	if err := dialog.Open(ctx); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	fmt.Printf("OTP sent to %s\n", dialog.Email())

	scanner := bufio.NewScanner(os.Stdin)
	last := time.Now()
	for {
		fmt.Printf("[%s] code / resend / cancel: ", dialog.CountdownLabel())
		if !scanner.Scan() {
			return scanner.Err()
		}

		// The dialog counts in whole seconds; apply the time the
		// operator spent at the prompt before acting on the input.
		elapsed := int(time.Since(last).Seconds())
		last = time.Now()
		for i := 0; i < elapsed; i++ {
			dialog.Tick()
		}

		switch input := strings.TrimSpace(scanner.Text()); input {
		case "cancel":
			dialog.Close()
			fmt.Println("cancelled")
			return nil
		case "resend":
			if !dialog.CanResend() {
				fmt.Printf("resend is available once %d seconds or less remain\n", 60)
				continue
			}
			if err := dialog.Resend(ctx); err != nil {
				fmt.Printf("resend failed: %v\n", err)
				continue
			}
			fmt.Printf("OTP re-sent to %s\n", dialog.Email())
		case "":
			if dialog.State() == flow.StateExpired {
				fmt.Println("code expired; type 'resend' for a new one")
			}
		default:
			dialog.SetCode(input)
			if !dialog.CanSubmit() {
				fmt.Println("enter the 6-digit code before the countdown runs out")
				continue
			}
			raw, err := dialog.Submit(ctx)
			if err != nil {
				fmt.Printf("verification failed: %v\n", err)
				continue
			}
			fmt.Printf("voucher deleted: %s\n", string(raw))
			return nil
		}
	}
}
