package ops

// DefaultRegistry builds a registry holding every built-in operation.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, op := range []*Operation{
		CreateFileOperation(),
		ReadFileOperation(),
		ListDirOperation(),
		FindFilesOperation(),
		SystemInfoOperation(),
		DiskSpaceOperation(),
		ListProcessesOperation(),
		ListEnvOperation(),
		GitStatusOperation(),
		GitAddOperation(),
		GitCommitOperation(),
		GitPushOperation(),
		HTTPGetOperation(),
		DownloadFileOperation(),
		SelfDiagnoseOperation(),
		WorkspaceOverviewOperation(),
		ProjectContextOperation(),
		RecentHistoryOperation(),
		SyncGraphOperation(),
		AssertEdgeOperation(),
		StoreKnowledgeOperation(),
		RetrieveKnowledgeOperation(),
	} {
		r.MustRegister(op)
	}
	return r
}
