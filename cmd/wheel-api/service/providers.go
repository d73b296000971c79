// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/kelseyhightower/envconfig"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/internal/infrastructure/auth"
	"github.com/unfairwheel/unfair-wheel-service/internal/infrastructure/mock"
	"github.com/unfairwheel/unfair-wheel-service/internal/infrastructure/nats"
)

var (
	natsClient      *nats.NATSClient
	natsMetadata    port.MetadataRepository
	natsCheckpoints port.CheckpointRepository

	natsDoOnce sync.Once
)

func natsInit(ctx context.Context) {
	natsDoOnce.Do(func() {
		var config nats.Config
		if err := envconfig.Process("", &config); err != nil {
			log.Fatalf("invalid NATS configuration: %v", err)
		}

		client, errNewClient := nats.NewClient(ctx, config)
		if errNewClient != nil {
			log.Fatalf("failed to create NATS client: %v", errNewClient)
		}
		natsClient = client
		natsMetadata = nats.NewMetadataRepository(client)
		natsCheckpoints = nats.NewCheckpointRepository(client)
	})
}

var (
	mockRepository *mock.MockRepository

	mockDoOnce sync.Once
)

// mockRepositoryImpl returns the shared in-memory repository so that the
// metadata and checkpoint ports see the same data in mock runs.
func mockRepositoryImpl() *mock.MockRepository {
	mockDoOnce.Do(func() {
		mockRepository = mock.NewMockRepository()
	})
	return mockRepository
}

func repositorySource() string {
	repoSource := os.Getenv("REPOSITORY_SOURCE")
	if repoSource == "" {
		repoSource = "nats"
	}
	return repoSource
}

// IdentityResolver initializes the identity resolver implementation.
func IdentityResolver(ctx context.Context) port.IdentityResolver {
	var resolver port.IdentityResolver

	authSource := os.Getenv("AUTH_SOURCE")
	if authSource == "" {
		authSource = "jwt"
	}

	switch authSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock identity resolver")
		resolver = mock.NewMockIdentityResolver()
	case "jwt":
		slog.InfoContext(ctx, "initializing JWT identity resolver")
		jwtConfig := auth.JWTAuthConfig{
			Secret: os.Getenv("AUTH_SECRET"),
		}
		jwtAuth, err := auth.NewJWTAuth(jwtConfig)
		if err != nil {
			log.Fatalf("failed to initialize JWT identity resolver: %v", err)
		}
		resolver = jwtAuth
	default:
		log.Fatalf("unsupported identity resolver implementation: %s", authSource)
	}

	return resolver
}

// MetadataStorage initializes the metadata repository implementation based
// on the repository source.
func MetadataStorage(ctx context.Context) port.MetadataRepository {
	var metadata port.MetadataRepository

	switch source := repositorySource(); source {
	case "mock":
		slog.InfoContext(ctx, "initializing mock metadata repository")
		metadata = mockRepositoryImpl()
	case "nats":
		slog.InfoContext(ctx, "initializing NATS metadata repository")
		natsInit(ctx)
		metadata = natsMetadata
	default:
		log.Fatalf("unsupported metadata repository implementation: %s", source)
	}

	return metadata
}

// CheckpointStorage initializes the checkpoint repository implementation
// based on the repository source.
func CheckpointStorage(ctx context.Context) port.CheckpointRepository {
	var checkpoints port.CheckpointRepository

	switch source := repositorySource(); source {
	case "mock":
		slog.InfoContext(ctx, "initializing mock checkpoint repository")
		checkpoints = mockRepositoryImpl()
	case "nats":
		slog.InfoContext(ctx, "initializing NATS checkpoint repository")
		natsInit(ctx)
		checkpoints = natsCheckpoints
	default:
		log.Fatalf("unsupported checkpoint repository implementation: %s", source)
	}

	return checkpoints
}

// StorageShutdown closes the storage client when one was opened.
func StorageShutdown() {
	if natsClient == nil {
		return
	}
	if err := natsClient.Close(); err != nil {
		slog.Error("failed to close NATS client", "error", err)
	}
}
