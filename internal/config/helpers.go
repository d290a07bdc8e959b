package config

func stringPtr(s string) *string { return &s }
func intPtr(n int) *int          { return &n }
func int64Ptr(n int64) *int64    { return &n }
