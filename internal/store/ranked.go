package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// textSearchConfig is the regconfig used for both the document vector and
// the query. It must match the expression index on searchable_content.
const textSearchConfig = "english"

// SemanticSearch returns the k messages closest to vec by cosine distance,
// restricted by f. Rank is the 0-based dense rank of the distance, so
// equidistant messages share a rank.
func (s *PostgresStore) SemanticSearch(ctx context.Context, vec []float32, f Filter, k int) (_ []RankedMessage, err error) {
	defer s.observe("semantic_search", time.Now(), &err)
	if k <= 0 {
		return nil, nil
	}

	w := newWhereBuilder(pgvector.NewVector(vec))
	w.add("m.embedding IS NOT NULL")
	w.addFilter(f)
	limitArg := w.addArg(k)

	// The inner ORDER BY/LIMIT lets the ANN index drive the scan; ranks
	// are assigned over the candidates only.
	rows, err := s.pool.Query(ctx, `
		SELECT c.*, dense_rank() OVER (ORDER BY c.distance) - 1 AS rank
		FROM (
			SELECT `+messageColumns+`, m.embedding <=> $1 AS distance
			FROM slack.message m
			WHERE `+w.String()+`
			ORDER BY distance
			LIMIT `+limitArg+`
		) c
		ORDER BY rank, c.ts DESC, c.channel_id
	`, w.args...)
	if err != nil {
		return nil, wrapQueryError("semantic search", err)
	}
	list, err := collectRanked(rows)
	if err != nil {
		return nil, wrapQueryError("semantic search", err)
	}
	return list, nil
}

// LexicalSearch returns the k most relevant messages for a web-search style
// query over searchable_content (message text plus attachment text),
// restricted by f. Rank is the 0-based dense rank of ts_rank_cd.
func (s *PostgresStore) LexicalSearch(ctx context.Context, query string, f Filter, k int) (_ []RankedMessage, err error) {
	defer s.observe("lexical_search", time.Now(), &err)
	if k <= 0 {
		return nil, nil
	}

	w := newWhereBuilder(query)
	w.add("to_tsvector('" + textSearchConfig + "', m.searchable_content) @@ q.query")
	w.addFilter(f)
	limitArg := w.addArg(k)

	rows, err := s.pool.Query(ctx, `
		SELECT c.*, dense_rank() OVER (ORDER BY c.relevance DESC) - 1 AS rank
		FROM (
			SELECT `+messageColumns+`,
				ts_rank_cd(to_tsvector('`+textSearchConfig+`', m.searchable_content), q.query)::float8 AS relevance
			FROM slack.message m,
				websearch_to_tsquery('`+textSearchConfig+`', $1) AS q(query)
			WHERE `+w.String()+`
			ORDER BY relevance DESC, m.ts DESC
			LIMIT `+limitArg+`
		) c
		ORDER BY rank, c.ts DESC, c.channel_id
	`, w.args...)
	if err != nil {
		return nil, wrapQueryError("lexical search", err)
	}
	list, err := collectRanked(rows)
	if err != nil {
		return nil, wrapQueryError("lexical search", err)
	}
	return list, nil
}

// collectRanked reads rows of messageColumns followed by score and rank.
func collectRanked(rows pgx.Rows) ([]RankedMessage, error) {
	defer rows.Close()

	var list []RankedMessage
	for rows.Next() {
		var (
			score float64
			rank  int64
		)
		m, err := scanMessage(rows, &score, &rank)
		if err != nil {
			return nil, err
		}
		list = append(list, RankedMessage{Message: m, Rank: int(rank), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
