package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store"
)

type edgeKey struct {
	owner common.Owner
	a, b  string
}

type nodeKey struct {
	owner common.Owner
	id    string
}

// Store is an in-memory Storage implementation backed by mutex-guarded
// maps. It is the default for tests and local development.
type Store struct {
	mu sync.RWMutex

	documents    map[common.Owner]map[string]common.Document
	docEntities  map[common.Owner]map[string][]string
	entities     map[common.Owner]map[string]common.CanonicalEntity
	aliases      map[common.Owner]map[string]common.Alias
	nodes        map[nodeKey]common.GraphNode
	nodeDocs     map[nodeKey]map[string]struct{}
	edges        map[edgeKey]map[string]struct{}
	metrics      map[common.Owner][]common.MetricsSnapshot
	tasks        map[string]common.Task
	analyses     map[common.Owner]map[string][]common.AnalysisResult
	failNextMerge error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		documents:   make(map[common.Owner]map[string]common.Document),
		docEntities: make(map[common.Owner]map[string][]string),
		entities:    make(map[common.Owner]map[string]common.CanonicalEntity),
		aliases:     make(map[common.Owner]map[string]common.Alias),
		nodes:       make(map[nodeKey]common.GraphNode),
		nodeDocs:    make(map[nodeKey]map[string]struct{}),
		edges:       make(map[edgeKey]map[string]struct{}),
		metrics:     make(map[common.Owner][]common.MetricsSnapshot),
		tasks:       make(map[string]common.Task),
		analyses:    make(map[common.Owner]map[string][]common.AnalysisResult),
	}
}

// FailNextMerge makes the next ApplyMerge call fail with err before any
// mutation. Fault injection hook for merge-atomicity tests.
func (s *Store) FailNextMerge(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextMerge = err
}

func (s *Store) GetDocument(ctx context.Context, owner common.Owner, id string) (common.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[owner][id]
	if !ok {
		return common.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, owner common.Owner) ([]common.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]common.Document, 0, len(s.documents[owner]))
	for _, doc := range s.documents[owner] {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *Store) SaveDocument(ctx context.Context, doc common.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.documents[doc.Owner] == nil {
		s.documents[doc.Owner] = make(map[string]common.Document)
	}
	s.documents[doc.Owner][doc.ID] = doc
	return nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, owner common.Owner, id string, status common.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[owner][id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Status = status
	s.documents[owner][id] = doc
	return nil
}

func (s *Store) SetDocumentText(ctx context.Context, owner common.Owner, id string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[owner][id]
	if !ok {
		return store.ErrNotFound
	}
	doc.RawText = text
	s.documents[owner][id] = doc
	return nil
}

func (s *Store) SetDocumentEntities(ctx context.Context, owner common.Owner, documentID string, entityIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docEntities[owner] == nil {
		s.docEntities[owner] = make(map[string][]string)
	}
	ids := make([]string, len(entityIDs))
	copy(ids, entityIDs)
	s.docEntities[owner][documentID] = ids
	return nil
}

func (s *Store) GetDocumentEntities(ctx context.Context, owner common.Owner, documentID string) ([]common.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.docEntities[owner][documentID]
	entities := make([]common.CanonicalEntity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[owner][id]; ok {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

func (s *Store) ListEntities(ctx context.Context, owner common.Owner) ([]common.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entities := make([]common.CanonicalEntity, 0, len(s.entities[owner]))
	for _, e := range s.entities[owner] {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].CanonicalName < entities[j].CanonicalName
	})
	return entities, nil
}

func (s *Store) GetEntity(ctx context.Context, owner common.Owner, id string) (common.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[owner][id]
	if !ok {
		return common.CanonicalEntity{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) SaveEntity(ctx context.Context, e common.CanonicalEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities[e.Owner] == nil {
		s.entities[e.Owner] = make(map[string]common.CanonicalEntity)
	}
	s.entities[e.Owner][e.ID] = e
	return nil
}

func (s *Store) FindAlias(ctx context.Context, owner common.Owner, aliasText string) (common.Alias, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.aliases[owner][aliasText]
	return a, ok, nil
}

func (s *Store) SaveAlias(ctx context.Context, a common.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliases[a.Owner] == nil {
		s.aliases[a.Owner] = make(map[string]common.Alias)
	}
	// One alias text per owner; later writes never retarget it.
	if _, exists := s.aliases[a.Owner][a.AliasText]; exists {
		return nil
	}
	s.aliases[a.Owner][a.AliasText] = a
	return nil
}

func (s *Store) ListAliases(ctx context.Context, owner common.Owner) ([]common.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aliases := make([]common.Alias, 0, len(s.aliases[owner]))
	for _, a := range s.aliases[owner] {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool {
		return aliases[i].AliasText < aliases[j].AliasText
	})
	return aliases, nil
}

func (s *Store) ListNodes(ctx context.Context, owner common.Owner) ([]common.GraphNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]common.GraphNode, 0)
	for key, node := range s.nodes {
		if key.owner == owner {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].EntityID < nodes[j].EntityID
	})
	return nodes, nil
}

func (s *Store) ListEdges(ctx context.Context, owner common.Owner) ([]common.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := make([]common.GraphEdge, 0)
	for key, docs := range s.edges {
		if key.owner != owner {
			continue
		}
		edges = append(edges, common.GraphEdge{
			Owner:  owner,
			A:      key.a,
			B:      key.b,
			Weight: len(docs),
		})
	}
	sortEdges(edges)
	return edges, nil
}

func (s *Store) ListEdgeDocuments(ctx context.Context, owner common.Owner) ([]common.EdgeDocuments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := make([]common.EdgeDocuments, 0)
	for key, docs := range s.edges {
		if key.owner != owner {
			continue
		}
		docIDs := make([]string, 0, len(docs))
		for doc := range docs {
			docIDs = append(docIDs, doc)
		}
		sort.Strings(docIDs)
		edges = append(edges, common.EdgeDocuments{Owner: owner, A: key.a, B: key.b, Documents: docIDs})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges, nil
}

func (s *Store) ListNodeDocuments(ctx context.Context, owner common.Owner) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]string)
	for key, docs := range s.nodeDocs {
		if key.owner != owner {
			continue
		}
		docIDs := make([]string, 0, len(docs))
		for doc := range docs {
			docIDs = append(docIDs, doc)
		}
		sort.Strings(docIDs)
		result[key.id] = docIDs
	}
	return result, nil
}

func (s *Store) AddNodeDocument(ctx context.Context, node common.GraphNode, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nodeKey{owner: node.Owner, id: node.EntityID}
	existing, ok := s.nodes[key]
	if !ok {
		existing = node
		existing.DocumentCount = 0
	}
	if s.nodeDocs[key] == nil {
		s.nodeDocs[key] = make(map[string]struct{})
	}
	if _, counted := s.nodeDocs[key][documentID]; counted {
		s.nodes[key] = existing
		return false, nil
	}
	s.nodeDocs[key][documentID] = struct{}{}
	existing.DocumentCount++
	s.nodes[key] = existing
	return true, nil
}

func (s *Store) AddEdgeDocument(ctx context.Context, owner common.Owner, a, b, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b = common.EdgeKey(a, b)
	key := edgeKey{owner: owner, a: a, b: b}
	if s.edges[key] == nil {
		s.edges[key] = make(map[string]struct{})
	}
	if _, counted := s.edges[key][documentID]; counted {
		return false, nil
	}
	s.edges[key][documentID] = struct{}{}
	return true, nil
}

func (s *Store) ApplyMerge(ctx context.Context, plan common.MergePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextMerge != nil {
		err := s.failNextMerge
		s.failNextMerge = nil
		return err
	}

	for _, id := range plan.RemoveEntityIDs {
		delete(s.entities[plan.Owner], id)
	}
	for _, a := range plan.Aliases {
		if s.aliases[plan.Owner] == nil {
			s.aliases[plan.Owner] = make(map[string]common.Alias)
		}
		s.aliases[plan.Owner][a.AliasText] = a
	}
	for _, pair := range plan.RemoveEdges {
		a, b := common.EdgeKey(pair[0], pair[1])
		delete(s.edges, edgeKey{owner: plan.Owner, a: a, b: b})
	}
	for _, e := range plan.UpsertEdges {
		key := edgeKey{owner: plan.Owner, a: e.A, b: e.B}
		docs := make(map[string]struct{}, len(e.Documents))
		for _, doc := range e.Documents {
			docs[doc] = struct{}{}
		}
		s.edges[key] = docs
	}
	for _, id := range plan.RemoveNodeIDs {
		key := nodeKey{owner: plan.Owner, id: id}
		delete(s.nodes, key)
		delete(s.nodeDocs, key)
	}
	if plan.PrimaryNode != nil {
		key := nodeKey{owner: plan.Owner, id: plan.PrimaryNode.EntityID}
		s.nodes[key] = *plan.PrimaryNode
		docs := make(map[string]struct{}, len(plan.PrimaryNodeDocs))
		for _, doc := range plan.PrimaryNodeDocs {
			docs[doc] = struct{}{}
		}
		s.nodeDocs[key] = docs
	}
	// Document entity sets referencing removed duplicates point at the
	// primary from now on.
	removed := make(map[string]struct{}, len(plan.RemoveEntityIDs))
	for _, id := range plan.RemoveEntityIDs {
		removed[id] = struct{}{}
	}
	for docID, ids := range s.docEntities[plan.Owner] {
		changed := false
		remapped := make([]string, 0, len(ids))
		seen := make(map[string]struct{})
		for _, id := range ids {
			if _, gone := removed[id]; gone {
				id = plan.PrimaryID
				changed = true
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			remapped = append(remapped, id)
		}
		if changed {
			s.docEntities[plan.Owner][docID] = remapped
		}
	}
	return nil
}

func (s *Store) ReplaceMetrics(ctx context.Context, owner common.Owner, snapshots []common.MetricsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]common.MetricsSnapshot, len(snapshots))
	copy(copied, snapshots)
	s.metrics[owner] = copied
	return nil
}

func (s *Store) ListMetrics(ctx context.Context, owner common.Owner) ([]common.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshots := make([]common.MetricsSnapshot, len(s.metrics[owner]))
	copy(snapshots, s.metrics[owner])
	return snapshots, nil
}

func (s *Store) CreateTask(ctx context.Context, t common.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (common.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return common.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t common.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return store.ErrNotFound
	}
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) ListDocumentTasks(ctx context.Context, owner common.Owner, documentID string) ([]common.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]common.Task, 0)
	for _, t := range s.tasks {
		if t.Owner == owner && t.DocumentID == documentID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, res common.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyses[res.Owner] == nil {
		s.analyses[res.Owner] = make(map[string][]common.AnalysisResult)
	}
	s.analyses[res.Owner][res.DocumentID] = append(s.analyses[res.Owner][res.DocumentID], res)
	return nil
}

func (s *Store) ListAnalyses(ctx context.Context, owner common.Owner, documentID string) ([]common.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]common.AnalysisResult, len(s.analyses[owner][documentID]))
	copy(results, s.analyses[owner][documentID])
	return results, nil
}

func sortEdges(edges []common.GraphEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
}
