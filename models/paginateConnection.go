package models

import (
	"github.com/fla-erp/ledger_backend/utils"
	"gorm.io/gorm"
)

type Identifier interface {
	GetId() int
}

type Edge[N Identifier] struct {
	Node   *N     `json:"node"`
	Cursor string `json:"cursor"`
}

type Connection[N Identifier] struct {
	Edges    []Edge[N] `json:"edges"`
	PageInfo *PageInfo `json:"pageInfo"`
}

// FetchPageById pages newest-first by id; after is the cursor of the last seen row.
func FetchPageById[T Identifier](dbCtx *gorm.DB, limit *int, after *string) (*Connection[T], error) {
	size := pageSize(limit)
	afterId, err := DecodeCursor(after)
	if err != nil {
		return nil, err
	}
	if afterId > 0 {
		dbCtx = dbCtx.Where("id < ?", afterId)
	}

	nodes := make([]*T, 0)
	if err := dbCtx.Order("id DESC").Limit(size + 1).Find(&nodes).Error; err != nil {
		return nil, err
	}

	hasNextPage := len(nodes) > size
	if hasNextPage {
		nodes = nodes[:size]
	}
	edges := make([]Edge[T], 0, len(nodes))
	for _, node := range nodes {
		edges = append(edges, Edge[T]{Node: node, Cursor: EncodeCursor((*node).GetId())})
	}

	pageInfo := &PageInfo{HasNextPage: utils.NewFalse()}
	if len(edges) > 0 {
		pageInfo = &PageInfo{
			StartCursor: edges[0].Cursor,
			EndCursor:   edges[len(edges)-1].Cursor,
			HasNextPage: &hasNextPage,
		}
	}
	return &Connection[T]{Edges: edges, PageInfo: pageInfo}, nil
}
