package common

type Module string

const (
	ModuleHolders Module = "holders"
)

func (m Module) String() string {
	return string(m)
}
