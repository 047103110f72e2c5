package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/example/foodshare/internal/query"
)

// Filter renders filter nodes as a Mongo query document.
func Filter(nodes []query.Node) bson.D {
	terms := make(bson.A, 0, len(nodes))
	for _, n := range nodes {
		path := n.Target().BSON
		switch n := n.(type) {
		case query.Equal:
			terms = append(terms, bson.D{{Key: path, Value: n.Value}})
		case query.Compare:
			terms = append(terms, bson.D{{Key: path, Value: bson.D{{Key: "$" + string(n.Op), Value: n.Value}}}})
		case query.Member:
			terms = append(terms, bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: n.Values}}}})
		}
	}

	switch len(terms) {
	case 0:
		return bson.D{}
	case 1:
		return terms[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: terms}}
	}
}

// Sort renders sort keys as a Mongo sort document.
func Sort(keys []query.SortKey) bson.D {
	out := make(bson.D, 0, len(keys)+1)
	byID := false
	for _, k := range keys {
		byID = byID || k.Field.BSON == "_id"
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: k.Field.BSON, Value: dir})
	}
	if byID {
		return out
	}
	return append(out, bson.E{Key: "_id", Value: 1})
}
