package domain

import "strconv"

// MateTheme возвращает тег каталога для мата в depth ходов.
func MateTheme(depth int) string {
	return "mateIn" + strconv.Itoa(depth)
}

// mateDepths перечислены по возрастанию: побеждает первое совпадение.
var mateDepths = []int{1, 2, 3}

// MateDepth определяет глубину мата по тегам. Без тега mateInN возвращает 0.
func MateDepth(themes []string) int {
	lookup := make(map[string]struct{}, len(themes))
	for _, theme := range themes {
		lookup[theme] = struct{}{}
	}
	for _, depth := range mateDepths {
		if _, ok := lookup[MateTheme(depth)]; ok {
			return depth
		}
	}
	return 0
}

// ParseMateDepth разбирает аргумент команды /random. Подходят только 1, 2 и 3.
func ParseMateDepth(arg string) (int, bool) {
	depth, err := strconv.Atoi(arg)
	if err != nil {
		return 0, false
	}
	for _, d := range mateDepths {
		if d == depth {
			return depth, true
		}
	}
	return 0, false
}
