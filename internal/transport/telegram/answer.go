package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data for an answer button: "ans_<questionIndex>_<optionIndex>".

func encodeAnswerData(questionIndex, optionIndex int) string {
	return fmt.Sprintf("ans_%d_%d", questionIndex, optionIndex)
}

func decodeAnswerData(data string) (questionIndex, optionIndex int, ok bool) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 || parts[0] != "ans" {
		return 0, 0, false
	}
	questionIndex, err := strconv.Atoi(parts[1])
	if err != nil || questionIndex < 0 {
		return 0, 0, false
	}
	optionIndex, err = strconv.Atoi(parts[2])
	if err != nil || optionIndex < 0 {
		return 0, 0, false
	}
	return questionIndex, optionIndex, true
}
