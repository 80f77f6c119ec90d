package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const (
	DefaultPageSize = 20
	maxPageSize     = 50

	// When searching, candidates are pulled in batches this many times the
	// page size, since an unknown share of them will be filtered out.
	searchBatchFactor = 3
)

// Index is the slice of the feed index the paginator reads.
type Index interface {
	FeedEntries(ctx context.Context, scope learningtool.Scope, cursor int64, limit int, kind learningtool.Kind) ([]learningtool.FeedEntry, error)
}

// Paginator turns opaque client cursors into index reads and computes the
// cursor for the next page.
type Paginator struct {
	index    Index
	resolver *Resolver
}

func NewPaginator(index Index, resolver *Resolver) *Paginator {
	return &Paginator{index: index, resolver: resolver}
}

type PageArgs struct {
	// Cursor bounds the page to entries with Seq below it; <= 0 reads from
	// the head of the log.
	Cursor int64
	// Limit is silently clamped to [1, maxPageSize]; 0 means the default.
	Limit int
	// Kind restricts the page to one entry kind when set.
	Kind learningtool.Kind
	// Search keeps only entries whose resolved content contains the term,
	// case-insensitively.
	Search string

	IncludeTopic bool
}

type Page struct {
	Items []EnrichedItem
	// NextCursor is the Seq of the last returned item, or nil once the end
	// of the log was reached.
	NextCursor *int64
}

func (p *Paginator) Page(ctx context.Context, scope learningtool.Scope, args PageArgs) (Page, error) {
	limit := args.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if args.Search != "" {
		return p.searchPage(ctx, scope, args, limit)
	}

	entries, err := p.index.FeedEntries(ctx, scope, args.Cursor, limit, args.Kind)
	if err != nil {
		return Page{}, fmt.Errorf("error reading feed index: %w", err)
	}

	page := Page{Items: p.resolver.Resolve(ctx, entries, args.IncludeTopic)}
	if len(entries) == limit {
		last := entries[len(entries)-1].Seq
		page.NextCursor = &last
	}

	return page, nil
}

// searchPage over-fetches candidates from the index, filters them against
// the resolved content, and re-slices to the page size. The cursor handed
// back is always a genuine index position (the Seq of the last returned
// item), so continuation stays correct no matter how selective the filter
// turned out to be.
func (p *Paginator) searchPage(ctx context.Context, scope learningtool.Scope, args PageArgs, limit int) (Page, error) {
	var (
		term      = strings.ToLower(args.Search)
		cursor    = args.Cursor
		batchSize = limit * searchBatchFactor
		matched   = make([]EnrichedItem, 0, limit)
		exhausted bool
	)

	for len(matched) < limit && !exhausted {
		entries, err := p.index.FeedEntries(ctx, scope, cursor, batchSize, args.Kind)
		if err != nil {
			return Page{}, fmt.Errorf("error reading feed index: %w", err)
		}
		exhausted = len(entries) < batchSize
		if len(entries) == 0 {
			break
		}
		cursor = entries[len(entries)-1].Seq

		for _, item := range p.resolver.Resolve(ctx, entries, args.IncludeTopic) {
			if item.Content == nil {
				continue
			}
			if !strings.Contains(strings.ToLower(item.Content.SearchText()), term) {
				continue
			}
			matched = append(matched, item)
			if len(matched) == limit {
				break
			}
		}
	}

	page := Page{Items: matched}
	if len(matched) == limit {
		last := matched[len(matched)-1].Entry.Seq
		page.NextCursor = &last
	}

	return page, nil
}
