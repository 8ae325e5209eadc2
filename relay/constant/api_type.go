package constant

import (
	"github.com/songquanpeng/litegate/common"
)

const (
	APITypeOpenAI = iota
	APITypeAnthropic
	APITypeDeepseek
	APITypeBedrock

	APITypeDummy // this one is only for count, do not add any provider after this
)

func Provider2APIType(provider string) int {
	apiType := APITypeOpenAI
	switch provider {
	case common.ProviderAnthropic:
		apiType = APITypeAnthropic
	case common.ProviderDeepseek:
		apiType = APITypeDeepseek
	case common.ProviderBedrock:
		apiType = APITypeBedrock
	}
	return apiType
}
