package helper

import (
	"github.com/songquanpeng/litegate/relay/channel"
	"github.com/songquanpeng/litegate/relay/channel/anthropic"
	"github.com/songquanpeng/litegate/relay/channel/aws"
	"github.com/songquanpeng/litegate/relay/channel/deepseek"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/constant"
)

func GetAdaptor(apiType int) channel.Adaptor {
	switch apiType {
	case constant.APITypeAnthropic:
		return &anthropic.Adaptor{}
	case constant.APITypeOpenAI:
		return &openai.Adaptor{}
	case constant.APITypeDeepseek:
		return &deepseek.Adaptor{}
	case constant.APITypeBedrock:
		return &aws.Adaptor{}
	}
	return nil
}

// ListModels returns every model the built-in adaptors advertise.
func ListModels() map[string][]string {
	models := make(map[string][]string, constant.APITypeDummy)
	for apiType := 0; apiType < constant.APITypeDummy; apiType++ {
		adaptor := GetAdaptor(apiType)
		if adaptor == nil {
			continue
		}
		models[adaptor.GetChannelName()] = adaptor.GetModelList()
	}
	return models
}
