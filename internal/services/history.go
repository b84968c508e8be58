package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"cosmic-chicken-backend/internal/config"
	"cosmic-chicken-backend/internal/models"
)

// HistoryService keeps a convenience feed of finished games in Redis. The
// contract remains authoritative; losing this data loses nothing the chain
// cannot reproduce.
type HistoryService struct {
	client *redis.Client
	ctx    context.Context
}

func NewHistoryService(cfg *config.Config) (*HistoryService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &HistoryService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *HistoryService) Close() error {
	return s.client.Close()
}

func playerKey(player common.Address) string {
	return strings.ToLower(player.Hex())
}

// SaveResult records a settled game and trims the player's index to the most
// recent entries.
func (s *HistoryService) SaveResult(player common.Address, rec *models.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %v", err)
	}

	resultKey := fmt.Sprintf(KeyGameResult, rec.GameID)
	if err := s.client.Set(s.ctx, resultKey, data, TTLGameResult).Err(); err != nil {
		return fmt.Errorf("failed to save result: %v", err)
	}

	indexKey := fmt.Sprintf(KeyPlayerResults, playerKey(player))
	if err := s.client.ZAdd(s.ctx, indexKey, redis.Z{
		Score:  float64(rec.EndedAt),
		Member: rec.GameID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index result: %v", err)
	}

	s.client.ZRemRangeByRank(s.ctx, indexKey, 0, int64(-(HistoryMaxEntries + 1)))
	s.client.Expire(s.ctx, indexKey, TTLGameResult)

	return nil
}

// GetHistory returns the player's most recent results, newest first.
func (s *HistoryService) GetHistory(player common.Address, limit int64) ([]*models.ResultRecord, error) {
	if limit <= 0 || limit > HistoryMaxEntries {
		limit = 50
	}

	indexKey := fmt.Sprintf(KeyPlayerResults, playerKey(player))
	gameIDs, err := s.client.ZRevRange(s.ctx, indexKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get result index: %v", err)
	}

	var records []*models.ResultRecord
	for _, gameID := range gameIDs {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyGameResult, gameID)).Result()
		if err != nil {
			continue
		}

		var rec models.ResultRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}
