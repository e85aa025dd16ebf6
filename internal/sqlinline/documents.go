package sqlinline

const QInsertDocument = `--sql 35c44632-5c04-4c95-aa96-6660ae4c367a
insert into documents (id, account_id, title, storage_key, language, page_count, status, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, $4::text, 0, 'uploaded', now(), now())
returning id;
`

const QSelectDocumentForAccount = `--sql 0781ca20-2270-48e7-b12f-2558727ea403
select id, account_id, title, storage_key, language, page_count, status,
       coalesce(extracted_text, ''), coalesce(error_message, ''), created_at, updated_at
from documents
where id = $1::uuid and account_id = $2::uuid
limit 1;
`

const QListDocumentsByAccount = `--sql 86b51faa-ecad-440c-886f-edd912b3331a
select id, account_id, title, storage_key, language, page_count, status,
       coalesce(error_message, ''), created_at, updated_at
from documents
where account_id = $1::uuid
order by created_at desc
limit $2::int;
`

const QDeleteDocument = `--sql 7b4475c3-e131-4edb-ac2d-4dbd4ec2c275
delete from documents
where id = $1::uuid and account_id = $2::uuid;
`
