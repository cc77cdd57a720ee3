package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/storage"
)

// InitStorage selects and returns the configured storage backend and the CDN
// rewriter that fronts it.
func InitStorage(env Environment) (storage.Storage, storage.CDN) {
	cdn := storage.CDN{
		Enabled: env.CDNEnabled,
		BaseURL: env.CDNURL,
		Bucket:  env.B2Bucket,
		Origin:  env.B2Endpoint,
	}

	switch env.StorageBackend {
	case "b2":
		b2, err := storage.NewB2Storage(env.B2Endpoint, env.B2Region, env.B2Bucket, env.B2KeyID, env.B2AppKey, cdn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize B2 storage")
		}
		log.Info().Str("bucket", env.B2Bucket).Bool("cdn", cdn.Enabled).Msg("using Backblaze B2 storage")
		return b2, cdn

	case "minio":
		mc, err := storage.NewMinioStorage(env.MinioEndpoint, env.MinioAccessKey, env.MinioSecretKey,
			env.MinioBucket, env.MinioPublicURL, env.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize MinIO storage")
		}
		log.Info().Str("bucket", env.MinioBucket).Msg("using MinIO storage")
		return mc, storage.CDN{}
	}

	log.Info().Str("dir", env.UploadDir).Msg("using local file storage")
	return storage.NewLocalStorage(env.UploadDir, env.PublicURL+"/uploads"), storage.CDN{}
}
