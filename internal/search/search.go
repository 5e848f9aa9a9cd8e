// Package search mirrors the project table into Elasticsearch so applicants
// can search listings by keyword, neighborhood, and flat type. The tables
// remain the source of truth; this index is rebuilt from them at startup.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
)

// projectDoc is the flattened shape indexed per project.
type projectDoc struct {
	Name         string   `json:"name"`
	Neighborhood string   `json:"neighborhood"`
	FlatTypes    []string `json:"flat_types"`
	MinPrice     int64    `json:"min_price_cents"`
	MaxPrice     int64    `json:"max_price_cents"`
	Visible      bool     `json:"visible"`
}

// Query carries the applicant-facing search filters.
type Query struct {
	Keywords     string
	Neighborhood string
	FlatType     models.FlatType
	MaxPrice     int64
	From         int
	Size         int
}

// Result is one matching project name with its score.
type Result struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type ProjectIndex struct {
	client *elasticsearch.Client
	index  string
	log    logger.Logger
}

func NewProjectIndex(client *elasticsearch.Client, index string, log logger.Logger) *ProjectIndex {
	return &ProjectIndex{
		client: client,
		index:  index,
		log:    log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// IndexProject upserts one project document keyed by project name.
func (p *ProjectIndex) IndexProject(ctx context.Context, project *models.Project) error {
	doc := projectDoc{
		Name:         project.Name,
		Neighborhood: project.Neighborhood,
		Visible:      project.Visible,
	}
	for ft, stock := range project.Flats {
		doc.FlatTypes = append(doc.FlatTypes, string(ft))
		if doc.MinPrice == 0 || stock.PriceCents < doc.MinPrice {
			doc.MinPrice = stock.PriceCents
		}
		if stock.PriceCents > doc.MaxPrice {
			doc.MaxPrice = stock.PriceCents
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal project doc: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      p.index,
		DocumentID: project.Name,
		Body:       strings.NewReader(string(body)),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("index project: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index project: %s", res.String())
	}
	return nil
}

// RemoveProject deletes the document. A missing document is fine.
func (p *ProjectIndex) RemoveProject(ctx context.Context, name string) error {
	req := esapi.DeleteRequest{
		Index:      p.index,
		DocumentID: name,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("remove project: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove project: %s", res.String())
	}
	return nil
}

// Rebuild reindexes every given project, used at startup after hydration.
func (p *ProjectIndex) Rebuild(ctx context.Context, projects []*models.Project) error {
	for _, project := range projects {
		if err := p.IndexProject(ctx, project); err != nil {
			return err
		}
	}
	p.log.Info("search index rebuilt", map[string]interface{}{"projects": len(projects)})
	return nil
}

// Search runs the listing query. Only visible projects come back.
func (p *ProjectIndex) Search(ctx context.Context, q Query) ([]Result, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	size := q.Size
	if size == 0 {
		size = 20
	}
	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  strings.NewReader(string(body)),
		From:  &q.From,
		Size:  &size,
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search projects: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64    `json:"_score"`
				Source projectDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]Result, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, Result{Name: hit.Source.Name, Score: hit.Score})
	}
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"visible": true},
		},
	}

	if q.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Keywords,
				"fields": []string{"name^3", "neighborhood"},
				"type":   "best_fields",
			},
		})
	}
	if q.Neighborhood != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"neighborhood": q.Neighborhood},
		})
	}
	if q.FlatType != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"flat_types": string(q.FlatType)},
		})
	}
	if q.MaxPrice > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"min_price_cents": map[string]interface{}{"lte": q.MaxPrice},
			},
		})
	}

	query := map[string]interface{}{"bool": map[string]interface{}{}}
	boolQuery := query["bool"].(map[string]interface{})
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	boolQuery["filter"] = filterClauses

	return map[string]interface{}{"query": query}
}
