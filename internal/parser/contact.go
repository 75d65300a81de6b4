package parser

import (
	"regexp"
	"strings"

	"resume-engine-go/internal/types"
)

// 联系方式识别模式
var contactPatterns = struct {
	email    *regexp.Regexp
	phone    *regexp.Regexp
	github   *regexp.Regexp
	linkedin *regexp.Regexp
	name     *regexp.Regexp
}{
	email:    regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	phone:    regexp.MustCompile(`(?:\+?86)?1[3-9]\d{9}|\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	github:   regexp.MustCompile(`(?i)github\.com/[\w.-]+`),
	linkedin: regexp.MustCompile(`(?i)linkedin\.com/in/[\w.-]+`),
	// 中文姓名2-4个汉字，英文姓名为两到三个首字母大写的单词
	name: regexp.MustCompile(`^[\p{Han}]{2,4}$|^[A-Z][a-z]+(?: [A-Z]\.?)? [A-Z][a-z]+$`),
}

// ExtractContact 从简历头部区域提取联系方式
// 只扫描文档前部（头部UNKNOWN块 + CONTACT章节），避免把正文里引用的
// 邮箱或链接误判为本人联系方式
func ExtractContact(text *types.NormalizedText) types.ContactInfo {
	var region strings.Builder

	for i := range text.Sections {
		s := &text.Sections[i]
		// 头部块和联系方式章节都计入扫描区域
		if s.Kind == types.SectionContact || (s.Kind == types.SectionUnknown && s.Ordinal == 0) {
			region.WriteString(s.Body)
			region.WriteString("\n")
		}
	}
	scan := region.String()
	if strings.TrimSpace(scan) == "" {
		// 没有可识别的头部时退回全文前几行
		lines := strings.Split(text.FullText, "\n")
		if len(lines) > 8 {
			lines = lines[:8]
		}
		scan = strings.Join(lines, "\n")
	}

	contact := types.ContactInfo{
		Email:    contactPatterns.email.FindString(scan),
		Phone:    contactPatterns.phone.FindString(scan),
		GitHub:   contactPatterns.github.FindString(scan),
		LinkedIn: contactPatterns.linkedin.FindString(scan),
	}

	// 姓名启发：扫描区域最前面的几行中第一个形如姓名的行
	for i, line := range strings.Split(scan, "\n") {
		if i >= 5 {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if contactPatterns.name.MatchString(trimmed) {
			contact.Name = trimmed
			break
		}
	}

	return contact
}
