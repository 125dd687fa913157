package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

var ErrActivityUnavailable = errors.New("relay activity unavailable")

type ActivityConfig struct {
	LogIndex       string
	RequestTimeout time.Duration
	TopCashiers    int
}

// ActivityService reads relay_event log entries back out of Elasticsearch.
type ActivityService struct {
	es             *elasticsearch.Client
	logIndex       string
	requestTimeout time.Duration
	topCashiers    int
	now            func() time.Time
}

func NewActivityService(es *elasticsearch.Client, cfg ActivityConfig) *ActivityService {
	if cfg.TopCashiers <= 0 {
		cfg.TopCashiers = 10
	}
	return &ActivityService{
		es:             es,
		logIndex:       cfg.LogIndex,
		requestTimeout: cfg.RequestTimeout,
		topCashiers:    cfg.TopCashiers,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *ActivityService) Summary(ctx context.Context, window time.Duration) (*domain.RelayActivity, error) {
	if s.es == nil {
		return nil, fmt.Errorf("%w: elasticsearch client not configured", ErrActivityUnavailable)
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	until := s.now()
	since := until.Add(-window)

	body := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{"exists": map[string]any{"field": "relay_event"}},
					{"range": map[string]any{"@timestamp": map[string]any{"gte": since.Format(time.RFC3339)}}},
				},
			},
		},
		"aggs": map[string]any{
			"events": map[string]any{
				"terms": map[string]any{"field": "relay_event.keyword", "size": 20},
			},
			"requests": map[string]any{
				"filter": map[string]any{"term": map[string]any{"relay_event.keyword": EventRequested}},
				"aggs": map[string]any{
					"cashiers": map[string]any{
						"terms": map[string]any{"field": "sender_id.keyword", "size": s.topCashiers},
					},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	resp, err := s.es.Search(
		s.es.Search.WithContext(reqCtx),
		s.es.Search.WithIndex(s.logIndex),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActivityUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("%w: elasticsearch search error: %s", ErrActivityUnavailable, resp.String())
	}

	var parsed activitySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrActivityUnavailable, err)
	}

	out := &domain.RelayActivity{
		Since:       since,
		Until:       until,
		Events:      make(map[string]int64, len(parsed.Aggregations.Events.Buckets)),
		TopCashiers: make([]domain.CashierActivity, 0, len(parsed.Aggregations.Requests.Cashiers.Buckets)),
	}
	for _, b := range parsed.Aggregations.Events.Buckets {
		out.Events[b.Key] = b.DocCount
	}
	for _, b := range parsed.Aggregations.Requests.Cashiers.Buckets {
		out.TopCashiers = append(out.TopCashiers, domain.CashierActivity{CashierID: b.Key, Requests: b.DocCount})
	}
	return out, nil
}

type termsBucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

type activitySearchResponse struct {
	Aggregations struct {
		Events struct {
			Buckets []termsBucket `json:"buckets"`
		} `json:"events"`
		Requests struct {
			Cashiers struct {
				Buckets []termsBucket `json:"buckets"`
			} `json:"cashiers"`
		} `json:"requests"`
	} `json:"aggregations"`
}
