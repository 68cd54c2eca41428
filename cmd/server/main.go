package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/atellix/aqua-dex/api/grpcserver"
	"github.com/atellix/aqua-dex/api/pb"
	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/vault"
	"github.com/atellix/aqua-dex/infra/kafka"
	"github.com/atellix/aqua-dex/infra/sequence"
	"github.com/atellix/aqua-dex/infra/store"
	"github.com/atellix/aqua-dex/infra/wal"
	"github.com/atellix/aqua-dex/jobs/broadcaster"
	"github.com/atellix/aqua-dex/service"
)

func main() {
	// ---------------- Config ----------------

	v := viper.New()
	v.SetConfigName("aquadex")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/aquadex")
	v.SetEnvPrefix("AQUADEX")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("wal_dir", "./data/wal")
	v.SetDefault("wal_segment_bytes", 2*1024*1024)
	v.SetDefault("wal_segment_minutes", 1)
	v.SetDefault("listen", ":50051")
	v.SetDefault("metrics_listen", ":9102")
	v.SetDefault("snapshot_seconds", 5)
	v.SetDefault("max_orders", 500)
	v.SetDefault("max_accounts", 1500)
	v.SetDefault("max_trades", 100)
	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.event_topic", "aquadex.events")
	v.SetDefault("kafka.trade_topic", "aquadex.trades")
	v.SetDefault("kafka.broadcast_seconds", 2)

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Fatal("config read failed", zap.Error(err))
		}
		logger.Info("no config file, using defaults")
	}

	// ---------------- Store ----------------

	db, err := store.Open(v.GetString("data_dir") + "/db")
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer db.Close()

	// ---------------- Journal ----------------

	journal, err := wal.Open(wal.Config{
		Dir:             v.GetString("wal_dir"),
		SegmentSize:     v.GetInt64("wal_segment_bytes"),
		SegmentDuration: time.Duration(v.GetInt("wal_segment_minutes")) * time.Minute,
	})
	if err != nil {
		logger.Fatal("journal open failed", zap.Error(err))
	}
	defer journal.Close()

	// ---------------- Kafka ----------------

	var producer *kafka.Producer
	if v.GetBool("kafka.enable") {
		producer = kafka.NewProducer(
			v.GetStringSlice("kafka.brokers"),
			v.GetString("kafka.event_topic"),
		)
		defer producer.Close()
	}

	// ---------------- Service ----------------

	seq := sequence.New(0)
	ledger := vault.NewLedger()
	svc, err := service.New(logger, db, journal, seq, producer, ledger, service.Config{
		Caps: engine.Capacities{
			MaxOrders:   uint32(v.GetInt("max_orders")),
			MaxAccounts: uint32(v.GetInt("max_accounts")),
			MaxTrades:   uint32(v.GetInt("max_trades")),
		},
		Limits: engine.DefaultLimits,
	})
	if err != nil {
		logger.Fatal("service init failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---------------- Background jobs ----------------

	go svc.RunSnapshots(ctx, time.Duration(v.GetInt("snapshot_seconds"))*time.Second)

	if v.GetBool("kafka.enable") {
		bc, err := broadcaster.New(
			svc,
			v.GetStringSlice("kafka.brokers"),
			v.GetString("kafka.trade_topic"),
			time.Duration(v.GetInt("kafka.broadcast_seconds"))*time.Second,
			logger,
		)
		if err != nil {
			logger.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// ---------------- Metrics ----------------

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(v.GetString("metrics_listen"), mux); err != nil {
			logger.Warn("metrics listener exited", zap.Error(err))
		}
	}()

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", v.GetString("listen"))
	if err != nil {
		logger.Fatal("listen failed", zap.Error(err))
	}
	grpcSrv := grpc.NewServer()
	pb.RegisterAquaDexServer(grpcSrv, grpcserver.NewServer(svc))

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		grpcSrv.GracefulStop()
		cancel()
	}()

	logger.Info("aquadex engine listening", zap.String("addr", v.GetString("listen")))
	if err := grpcSrv.Serve(lis); err != nil {
		logger.Fatal("grpc server exited", zap.Error(err))
	}
	if err := svc.Snapshot(); err != nil {
		logger.Error("shutdown snapshot failed", zap.Error(err))
	}
}
