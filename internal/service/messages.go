package service

import (
	"fmt"
	"html"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// formatMoney печатает сумму с двумя знаками после запятой.
func formatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func shortID(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func emailBody(title string, lines ...string) string {
	body := "<h2>" + html.EscapeString(title) + "</h2>"
	for _, line := range lines {
		body += "<p>" + html.EscapeString(line) + "</p>"
	}
	return body
}

func bidAcceptedEmail(bid models.Bid) models.Email {
	return models.Email{
		Subject: "Ваша ставка принята",
		HTML: emailBody("Ваша ставка принята",
			fmt.Sprintf("Ставка %s по заявке %s принята.", shortID(bid.ID), shortID(bid.QuotationID)),
			fmt.Sprintf("Сумма к выплате после завершения удержания: %s.", formatMoney(bid.Price)),
		),
	}
}

func bidRejectedEmail(bid models.Bid) models.Email {
	return models.Email{
		Subject: "Ставка не выбрана",
		HTML: emailBody("Ставка не выбрана",
			fmt.Sprintf("По заявке %s выбрана другая ставка.", shortID(bid.QuotationID)),
		),
	}
}

func quotationAwardedEmail(q models.Quotation, settlement decimal.Decimal) models.Email {
	return models.Email{
		Subject: "Исполнитель по заявке выбран",
		HTML: emailBody("Исполнитель по заявке выбран",
			fmt.Sprintf("По заявке %s выбран исполнитель.", shortID(q.ID)),
			fmt.Sprintf("Итоговая стоимость с учётом комиссии: %s.", formatMoney(settlement)),
		),
	}
}

func quotationClosedEmail(q models.Quotation) models.Email {
	return models.Email{
		Subject: "Заявка закрыта",
		HTML: emailBody("Заявка закрыта",
			fmt.Sprintf("Заявка %s закрыта без выбора исполнителя.", shortID(q.ID)),
		),
	}
}

func paymentCapturedEmail(bid models.Bid) models.Email {
	return models.Email{
		Subject: "Оплата получена",
		HTML: emailBody("Оплата получена",
			fmt.Sprintf("Оплата по заявке %s получена и удерживается до завершения работ.", shortID(bid.QuotationID)),
		),
	}
}

func escrowReleasedEmail(bid models.MaturedBid) models.Email {
	return models.Email{
		Subject: "Срок удержания завершён",
		HTML: emailBody("Срок удержания завершён",
			fmt.Sprintf("Срок удержания по ставке %s завершён.", shortID(bid.ID)),
			fmt.Sprintf("К выплате: %s.", formatMoney(bid.Price)),
		),
	}
}

const disputeUnknownNote = "Не удалось проверить наличие спора, проверьте ставку вручную."

func disbursementRequiredEmail(bid models.MaturedBid, dispute *models.Dispute, disputeKnown bool) models.Email {
	lines := []string{
		fmt.Sprintf("Ставка %s: требуется ручная выплата поставщику.", bid.ID),
		fmt.Sprintf("Сумма выплаты: %s. Оплачено заказчиком: %s.", formatMoney(bid.Price), formatMoney(bid.SettlementPrice.Decimal)),
	}
	switch {
	case !disputeKnown:
		lines = append(lines, "Внимание: "+disputeUnknownNote)
	case dispute != nil:
		lines = append(lines, fmt.Sprintf("Внимание: по ставке открыт спор %s (%s).", dispute.ID, dispute.Status))
	}
	return models.Email{
		Subject: "Требуется выплата",
		HTML:    emailBody("Требуется выплата", lines...),
	}
}

func fundsDisbursedEmail(bid models.Bid) models.Email {
	return models.Email{
		Subject: "Средства выплачены",
		HTML: emailBody("Средства выплачены",
			fmt.Sprintf("Выплата по ставке %s на сумму %s отправлена.", shortID(bid.ID), formatMoney(bid.Price)),
		),
	}
}

func disputeFiledEmail(d models.Dispute) models.Email {
	return models.Email{
		Subject: "Открыт спор",
		HTML: emailBody("Открыт спор",
			fmt.Sprintf("По ставке %s открыт спор %s.", d.BidID, d.ID),
			"Причина: "+d.Reason,
			d.Detail,
		),
	}
}

func disputeStatusEmail(d models.Dispute) models.Email {
	return models.Email{
		Subject: "Статус спора изменён",
		HTML: emailBody("Статус спора изменён",
			fmt.Sprintf("Спор %s переведён в статус %s.", shortID(d.ID), d.Status),
		),
	}
}
