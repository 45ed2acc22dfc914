package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"

	"crm-engine/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SearchingStore serves the assembler's reads with participant thread lookups
// accelerated through the search index. Every other read passes through to
// the SQL store. A failed index query degrades to the SQL overlap lookup
// instead of failing assembly.
type SearchingStore struct {
	*Store
	search *ThreadSearch
	logger logger.Logger
}

func NewSearchingStore(st *Store, search *ThreadSearch, log logger.Logger) *SearchingStore {
	return &SearchingStore{
		Store:  st,
		search: search,
		logger: log.WithFields(map[string]interface{}{"component": "searching-store"}),
	}
}

func (s *SearchingStore) ThreadsForLead(ctx context.Context, leadID string, emails []string, limit int) ([]models.Thread, error) {
	ids, err := s.search.FindThreadIDsByParticipants(ctx, emails, limit)
	if err != nil {
		s.logger.Warn("participant search failed, using SQL overlap", map[string]interface{}{
			"leadId": leadID,
			"error":  err.Error(),
		})
		return s.Store.ThreadsForLead(ctx, leadID, emails, limit)
	}
	return s.Store.ThreadsForLeadOrIDs(ctx, leadID, ids, limit)
}

// ThreadSearch finds candidate thread ids by participant email through the
// search index. It is an optional acceleration for large mailboxes; when the
// index is disabled the engine's SQL participant lookups are the sole path.
type ThreadSearch struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewThreadSearch(client *elasticsearch.Client, index string, log logger.Logger) *ThreadSearch {
	return &ThreadSearch{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "thread-search"}),
	}
}

// FindThreadIDsByParticipants returns ids of threads whose participant list
// intersects the given emails, most recent first.
func (ts *ThreadSearch) FindThreadIDsByParticipants(ctx context.Context, emails []string, size int) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	terms := make([]interface{}, 0, len(emails))
	for _, e := range emails {
		terms = append(terms, e)
	}
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"terms": map[string]interface{}{"participant_emails": terms},
					},
				},
				"must_not": []interface{}{
					map[string]interface{}{
						"exists": map[string]interface{}{"field": "deleted_at"},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"last_message_at": map[string]interface{}{"order": "desc"}},
		},
		"_source": false,
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{ts.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, ts.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}

	ts.logger.Debug("participant search completed", map[string]interface{}{
		"emails": len(emails),
		"hits":   len(ids),
	})
	return ids, nil
}
