package git

import "context"

// Compile-time check that MockRepository implements Repository.
var _ Repository = (*MockRepository)(nil)

// MockRepository is a configurable mock implementation of Repository for testing.
// Each method is backed by a function field. If the function field is nil,
// the method returns sensible zero values.
type MockRepository struct {
	PathFunc                func() string
	WorkingDirectoryFunc    func() string
	HeadFunc                func() (Branch, error)
	UpdateHeadFunc          func(string) error
	BranchesFunc            func() ([]Branch, error)
	ResolveBranchFunc       func(string) (Commit, error)
	ResolveRemoteBranchFunc func(string, string) (Commit, error)
	CommitFromShaFunc       func(string) (Commit, error)
	CreateBranchFunc        func(string, string) error
	CheckoutFunc            func(string) error
	FastForwardFunc         func(string) error
	StatusFunc              func() ([]FileStatus, error)
	StagePathFunc           func(string) error
	UnstagePathFunc         func(string) error
	ConflictedPathsFunc     func() ([]string, error)
	WriteTreeFunc           func() (string, error)
	CreateCommitFunc        func(CommitSpec) (string, error)
	LogFunc                 func(string, func(Commit) error) error
	TouchesPathFunc         func(Commit, string) (bool, error)
	IsAncestorFunc          func(string, string) (bool, error)
	FindMergeBaseFunc       func(string, string) (string, error)
	MergeFunc               func(string, MergeLabels) (MergeOutcome, error)
	MergeHeadFunc           func() (string, error)
	CleanupStateFunc        func() error
	ReadFileFunc            func(string, string) ([]byte, error)
	SignatureFunc           func() (Signature, bool)
	RemotesFunc             func() ([]Remote, error)
	AddRemoteFunc           func(string, string) error
	FetchFunc               func(context.Context, string, string) error
	PushFunc                func(context.Context, string, string) error
}

func (m *MockRepository) Path() string {
	if m.PathFunc != nil {
		return m.PathFunc()
	}
	return ""
}

func (m *MockRepository) WorkingDirectory() string {
	if m.WorkingDirectoryFunc != nil {
		return m.WorkingDirectoryFunc()
	}
	return ""
}

func (m *MockRepository) Head() (Branch, error) {
	if m.HeadFunc != nil {
		return m.HeadFunc()
	}
	return Branch{}, nil
}

func (m *MockRepository) UpdateHead(sha string) error {
	if m.UpdateHeadFunc != nil {
		return m.UpdateHeadFunc(sha)
	}
	return nil
}

func (m *MockRepository) Branches() ([]Branch, error) {
	if m.BranchesFunc != nil {
		return m.BranchesFunc()
	}
	return nil, nil
}

func (m *MockRepository) ResolveBranch(name string) (Commit, error) {
	if m.ResolveBranchFunc != nil {
		return m.ResolveBranchFunc(name)
	}
	return Commit{}, notFound(name)
}

func (m *MockRepository) ResolveRemoteBranch(remote, branch string) (Commit, error) {
	if m.ResolveRemoteBranchFunc != nil {
		return m.ResolveRemoteBranchFunc(remote, branch)
	}
	return Commit{}, notFound(remote + "/" + branch)
}

func (m *MockRepository) CommitFromSha(sha string) (Commit, error) {
	if m.CommitFromShaFunc != nil {
		return m.CommitFromShaFunc(sha)
	}
	return Commit{Sha: sha}, nil
}

func (m *MockRepository) CreateBranch(name, sha string) error {
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(name, sha)
	}
	return nil
}

func (m *MockRepository) Checkout(branch string) error {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(branch)
	}
	return nil
}

func (m *MockRepository) FastForward(sha string) error {
	if m.FastForwardFunc != nil {
		return m.FastForwardFunc(sha)
	}
	return nil
}

func (m *MockRepository) Status() ([]FileStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return nil, nil
}

func (m *MockRepository) StagePath(path string) error {
	if m.StagePathFunc != nil {
		return m.StagePathFunc(path)
	}
	return nil
}

func (m *MockRepository) UnstagePath(path string) error {
	if m.UnstagePathFunc != nil {
		return m.UnstagePathFunc(path)
	}
	return nil
}

func (m *MockRepository) ConflictedPaths() ([]string, error) {
	if m.ConflictedPathsFunc != nil {
		return m.ConflictedPathsFunc()
	}
	return nil, nil
}

func (m *MockRepository) WriteTree() (string, error) {
	if m.WriteTreeFunc != nil {
		return m.WriteTreeFunc()
	}
	return "", nil
}

func (m *MockRepository) CreateCommit(spec CommitSpec) (string, error) {
	if m.CreateCommitFunc != nil {
		return m.CreateCommitFunc(spec)
	}
	return "", nil
}

func (m *MockRepository) Log(sha string, fn func(Commit) error) error {
	if m.LogFunc != nil {
		return m.LogFunc(sha, fn)
	}
	return nil
}

func (m *MockRepository) TouchesPath(c Commit, path string) (bool, error) {
	if m.TouchesPathFunc != nil {
		return m.TouchesPathFunc(c, path)
	}
	return true, nil
}

func (m *MockRepository) IsAncestor(ancestor, descendant string) (bool, error) {
	if m.IsAncestorFunc != nil {
		return m.IsAncestorFunc(ancestor, descendant)
	}
	return ancestor == descendant, nil
}

func (m *MockRepository) FindMergeBase(sha1, sha2 string) (string, error) {
	if m.FindMergeBaseFunc != nil {
		return m.FindMergeBaseFunc(sha1, sha2)
	}
	return "", nil
}

func (m *MockRepository) Merge(theirs string, labels MergeLabels) (MergeOutcome, error) {
	if m.MergeFunc != nil {
		return m.MergeFunc(theirs, labels)
	}
	return MergeOutcome{}, nil
}

func (m *MockRepository) MergeHead() (string, error) {
	if m.MergeHeadFunc != nil {
		return m.MergeHeadFunc()
	}
	return "", nil
}

func (m *MockRepository) CleanupState() error {
	if m.CleanupStateFunc != nil {
		return m.CleanupStateFunc()
	}
	return nil
}

func (m *MockRepository) ReadFile(sha, path string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(sha, path)
	}
	return nil, notFound(path)
}

func (m *MockRepository) Signature() (Signature, bool) {
	if m.SignatureFunc != nil {
		return m.SignatureFunc()
	}
	return Signature{}, false
}

func (m *MockRepository) Remotes() ([]Remote, error) {
	if m.RemotesFunc != nil {
		return m.RemotesFunc()
	}
	return nil, nil
}

func (m *MockRepository) AddRemote(name, url string) error {
	if m.AddRemoteFunc != nil {
		return m.AddRemoteFunc(name, url)
	}
	return nil
}

func (m *MockRepository) Fetch(ctx context.Context, remote, branch string) error {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, remote, branch)
	}
	return nil
}

func (m *MockRepository) Push(ctx context.Context, remote, branch string) error {
	if m.PushFunc != nil {
		return m.PushFunc(ctx, remote, branch)
	}
	return nil
}
