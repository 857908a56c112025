package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

type fakeSource struct {
	urls  map[string]string
	paths map[string]string
}

func (f *fakeSource) Fetch(_ context.Context, url string) ([]byte, error) {
	if b, ok := f.urls[url]; ok {
		return []byte(b), nil
	}
	return nil, fmt.Errorf("%w: `%s`", domain.ErrSourceNotFound, url)
}

func (f *fakeSource) Read(path string) ([]byte, error) {
	if b, ok := f.paths[path]; ok {
		return []byte(b), nil
	}
	return nil, fmt.Errorf("%w: `%s`", domain.ErrSourceNotFound, path)
}

type fakeRepo struct {
	branches map[string]string
	pulled   []string
	forced   map[string]string
	checkout []string
}

func (r *fakeRepo) HasBranch(name string) (bool, error) {
	_, ok := r.branches[name]
	return ok, nil
}

func (r *fakeRepo) Pull(_ context.Context, branch string) error {
	r.pulled = append(r.pulled, branch)
	return nil
}

func (r *fakeRepo) SetBranchToCommit(branch, hash string) error {
	if r.forced == nil {
		r.forced = map[string]string{}
	}
	r.forced[branch] = hash
	r.branches[branch] = hash
	return nil
}

func (r *fakeRepo) CurrentCommit(branch string) (string, error) {
	return r.branches[branch], nil
}

func (r *fakeRepo) Checkout(branch string) error {
	r.checkout = append(r.checkout, branch)
	return nil
}

type fakeGit struct {
	repo   *fakeRepo
	opened []string
}

func (g *fakeGit) CloneOrOpen(_ context.Context, url, path string) (ports.GitRepository, error) {
	g.opened = append(g.opened, url+" "+path)
	return g.repo, nil
}

type fakeBackend struct {
	mu sync.Mutex

	output   []string
	exitCode int
	// release, when set, blocks the build after the first line until closed.
	release chan struct{}
	pushErr map[string]error
	// snapshot, when set, reads the working copy once the build is released.
	snapshot func() string

	contexts map[string]string

	requests []ports.BuildRequest
	tagged   [][2]string
	pushed   []string
	logins   []string
}

func (b *fakeBackend) Build(ctx context.Context, req ports.BuildRequest, lines chan<- string) (int, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	for i, line := range b.output {
		select {
		case lines <- line:
		case <-ctx.Done():
			return -1, ctx.Err()
		}
		if i == 0 && b.release != nil {
			<-b.release
		}
	}
	if b.snapshot != nil {
		b.mu.Lock()
		if b.contexts == nil {
			b.contexts = map[string]string{}
		}
		b.contexts[req.Tag] = b.snapshot()
		b.mu.Unlock()
	}
	return b.exitCode, nil
}

func (b *fakeBackend) Tag(_ context.Context, source, target string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tagged = append(b.tagged, [2]string{source, target})
	return nil
}

func (b *fakeBackend) Push(_ context.Context, repository, tag string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref := repository + ":" + tag
	if err := b.pushErr[ref]; err != nil {
		return err
	}
	b.pushed = append(b.pushed, ref)
	return nil
}

func (b *fakeBackend) Login(_ context.Context, username, _, registry string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logins = append(b.logins, username+"@"+registry)
	return nil
}

// fakeDNS keeps records by local name and logs every call.
type fakeDNS struct {
	records map[string][]domain.DNSRecord
	pingErr error
	// stickyDelete makes deletions report success without removing anything.
	stickyDelete bool

	nextID int
	calls  []string
}

func (f *fakeDNS) Ping(context.Context) error {
	f.calls = append(f.calls, "ping")
	return f.pingErr
}

func (f *fakeDNS) Records(_ context.Context, _, recordType, name string) ([]domain.DNSRecord, error) {
	f.calls = append(f.calls, "records "+name)
	var out []domain.DNSRecord
	for _, r := range f.records[name] {
		if r.Type == recordType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDNS) DeleteRecord(_ context.Context, _, id string) error {
	f.calls = append(f.calls, "delete "+id)
	if f.stickyDelete {
		return nil
	}
	for name, records := range f.records {
		kept := records[:0]
		for _, r := range records {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		f.records[name] = kept
	}
	return nil
}

func (f *fakeDNS) CreateRecord(_ context.Context, _ string, record domain.DNSRecord) error {
	f.calls = append(f.calls, "create "+record.Name+" "+record.Content)
	f.nextID++
	record.ID = "new-" + strconv.Itoa(f.nextID)
	f.records[record.Name] = append(f.records[record.Name], record)
	return nil
}

func aRecord(id, name, content string) domain.DNSRecord {
	return domain.DNSRecord{ID: id, Name: name, Type: domain.RecordTypeA, Content: content}
}
