package hitchhike

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

type routeKey struct {
	source osm.NodeID
	target osm.NodeID
}

type cachedPath struct {
	cost float64
	path []osm.NodeID
	err  error
}

// CachedFinder memoizes results of wrapped PathFinder, including "no route" answers.
// Calibration and scenario runs query the same pairs over and over.
type CachedFinder struct {
	finder PathFinder
	cache  *lru.Cache[routeKey, cachedPath]
}

func NewCachedFinder(finder PathFinder, size int) (*CachedFinder, error) {
	cache, err := lru.New[routeKey, cachedPath](size)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create route cache")
	}
	return &CachedFinder{finder: finder, cache: cache}, nil
}

func (finder *CachedFinder) ShortestPath(source, target osm.NodeID) (float64, []osm.NodeID, error) {
	key := routeKey{source: source, target: target}
	if hit, ok := finder.cache.Get(key); ok {
		return hit.cost, hit.path, hit.err
	}
	cost, path, err := finder.finder.ShortestPath(source, target)
	if err == nil || errors.Is(err, ErrNoRouteFound) {
		finder.cache.Add(key, cachedPath{cost: cost, path: path, err: err})
	}
	return cost, path, err
}

// Len returns number of memoized pairs
func (finder *CachedFinder) Len() int {
	return finder.cache.Len()
}
