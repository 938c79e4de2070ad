package types

// Provider identifies the upstream cloud vendor a cost line originated from.
type Provider string

const (
	ProviderGCP    Provider = "gcp"
	ProviderAWS    Provider = "aws"
	ProviderOpenAI Provider = "openai"
	ProviderCustom Provider = "custom"
)

func (p Provider) Validate() bool {
	switch p {
	case ProviderGCP, ProviderAWS, ProviderOpenAI, ProviderCustom:
		return true
	}
	return false
}

// SourceType describes how an ingestion batch was obtained.
type SourceType string

const (
	SourceTypeExport SourceType = "export" // scheduled vendor export (BigQuery, CUR)
	SourceTypeAPI    SourceType = "api"    // vendor usage API
	SourceTypeUpload SourceType = "upload" // operator-supplied file
)
