package openai

var ModelList = []string{
	"gpt-3.5-turbo", "gpt-3.5-turbo-0125", "gpt-3.5-turbo-instruct",
	"gpt-4", "gpt-4-turbo", "gpt-4-turbo-2024-04-09",
	"gpt-4o", "gpt-4o-2024-08-06", "gpt-4o-2024-11-20",
	"gpt-4o-mini", "gpt-4o-mini-2024-07-18",
	"gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano",
	"o1", "o1-mini", "o3", "o3-mini", "o4-mini",
}
