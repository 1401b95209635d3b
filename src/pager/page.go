package pager

import "github.com/dstrohschein/miniql/src/schema"

// PageContainer is one cached page: its raw node bytes and the Position
// it lives at. Data's length is the node's current span (this pager
// packs one node per page), never exceeding PageSize.
type PageContainer struct {
	Data     []byte
	Position schema.Position
}
