package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// amountPrinter 按语言环境格式化金额（千分位，两位小数）
type amountPrinter struct {
	printer *message.Printer
}

func newAmountPrinter(tag language.Tag) *amountPrinter {
	return &amountPrinter{printer: message.NewPrinter(tag)}
}

func (a *amountPrinter) Format(v float64) string {
	return a.printer.Sprintf("%.2f", v)
}
