package ats

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// FleschReadingEase 计算 Flesch 可读性分数：
// 206.835 - 1.015 × (词数/句数) - 84.6 × (音节数/词数)。
// 没有可计数的单词时返回 ok=false。
func FleschReadingEase(text string) (float64, bool) {
	words := wordsOf(text)
	if len(words) == 0 {
		return 0, false
	}

	sentences := 0
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wps := float64(len(words)) / float64(sentences)
	spw := float64(syllables) / float64(len(words))
	return 206.835 - 1.015*wps - 84.6*spw, true
}

// wordsOf 取出只含字母的单词，小写
func wordsOf(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "'"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// countSyllables 按元音组估算英文单词音节数，结尾不发音的 e 不计，最少 1 个
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
