package deepseek

var ModelList = []string{
	"deepseek-chat",
	"deepseek-reasoner",
	"deepseek-coder",
}
