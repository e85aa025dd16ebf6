package sqlinline

const QInsertUsageEvent = `--sql b9daff91-1bb8-4ff3-97de-4ee380dc168c
insert into usage_events(id, account_id, request_id, kind, allowed, reason, pages_charged, pages_remaining, created_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::boolean, $5::text, $6::int, $7::int, now());
`

const QUsageSummary = `--sql 463b74aa-e40b-4f74-b3d6-831e41ad9363
select kind,
       count(*) filter (where allowed) as granted,
       count(*) filter (where not allowed) as denied,
       coalesce(sum(pages_charged) filter (where allowed), 0) as pages_charged
from usage_events
where account_id = $1::uuid
  and created_at >= $2::timestamptz
group by kind
order by kind;
`
